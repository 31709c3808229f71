// Package matching turns course entitlements of the vhb federation
// into course memberships and role assignments.
//
// Registered courses carry wildcard patterns for vhb course numbers
// in their metadata (a legacy catalog entry or a current LV_ keyword).
// Each entitlement with the local scope is matched against these
// patterns; unambiguous student matches become direct memberships,
// ambiguous or confirmation-required matches become a pending
// selection the user resolves on the selection screen.
package matching
