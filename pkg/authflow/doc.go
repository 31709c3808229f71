// Package authflow runs the federated login pipeline: normalize the
// raw attribute set, resolve the local account, check the access
// gate, apply the provisioning decision and assign entitled courses.
//
// All fatal checks run before the first store mutation; a failing
// login leaves accounts and memberships untouched.
package authflow
