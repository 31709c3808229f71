package matching

import (
	"context"
	"fmt"
	"sort"

	"github.com/DatabayAG/VhbShibAuth/pkg/session"
)

// SelectionChoice is the user's answer for one ambiguous course
// number: one direct-join candidate and any number of
// confirmation-required candidates to put a waiting list request in
// for.
type SelectionChoice struct {
	CourseNumber string
	DirectRef    int64 // 0 = no direct join chosen
	WaitlistRefs []int64
}

// SelectionGroup is the displayable form of one pending course
// number.
type SelectionGroup struct {
	CourseNumber string
	Direct       []*Course // join immediately when chosen
	Confirmation []*Course // chosen entries become waiting list requests
}

// SelectionGroups prepares the pending selection for the selection
// screen, in stable course number order.
func (m *Matcher) SelectionGroups(ctx context.Context, pending session.PendingSelection) ([]*SelectionGroup, error) {
	numbers := make([]string, 0, len(pending))
	for lvnr := range pending {
		numbers = append(numbers, lvnr)
	}
	sort.Strings(numbers)

	var groups []*SelectionGroup
	for _, lvnr := range numbers {
		group := &SelectionGroup{CourseNumber: lvnr}
		for _, ref := range pending[lvnr] {
			course, err := m.courseByRef(ctx, ref)
			if err != nil {
				return nil, err
			}
			if course == nil {
				continue // unregistered since the login, drop it
			}
			if course.NeedsConfirmation {
				group.Confirmation = append(group.Confirmation, course)
			} else {
				group.Direct = append(group.Direct, course)
			}
		}
		if len(group.Direct) > 0 || len(group.Confirmation) > 0 {
			groups = append(groups, group)
		}
	}
	return groups, nil
}

// ApplySelection executes the confirmed choices. Direct candidates
// become memberships, confirmation candidates become waiting list
// requests, and deselecting a confirmation candidate withdraws a
// previously filed request. Refs outside the pending selection are
// rejected.
func (m *Matcher) ApplySelection(ctx context.Context, userID int64, pending session.PendingSelection, choices []SelectionChoice) error {
	for _, choice := range choices {
		allowed := make(map[int64]bool)
		for _, ref := range pending[choice.CourseNumber] {
			allowed[ref] = true
		}

		if choice.DirectRef != 0 {
			if !allowed[choice.DirectRef] {
				return fmt.Errorf("course %d is not a candidate for %s", choice.DirectRef, choice.CourseNumber)
			}
			course, err := m.courseByRef(ctx, choice.DirectRef)
			if err != nil {
				return err
			}
			if course != nil {
				if err := m.joinCourse(ctx, userID, course); err != nil {
					return err
				}
			}
		}

		wanted := make(map[int64]bool, len(choice.WaitlistRefs))
		for _, ref := range choice.WaitlistRefs {
			if !allowed[ref] {
				return fmt.Errorf("course %d is not a candidate for %s", ref, choice.CourseNumber)
			}
			wanted[ref] = true
		}
		for _, ref := range pending[choice.CourseNumber] {
			course, err := m.courseByRef(ctx, ref)
			if err != nil {
				return err
			}
			if course == nil || !course.NeedsConfirmation {
				continue
			}
			if wanted[ref] {
				if err := m.members.RequestWaitingList(ctx, userID, ref); err != nil {
					return fmt.Errorf("failed to file waiting list request for course %d: %w", ref, err)
				}
				if m.metrics != nil {
					m.metrics.WaitingListRequestsTotal.Inc()
				}
			} else if err := m.members.RemoveWaitingListRequest(ctx, userID, ref); err != nil {
				return fmt.Errorf("failed to withdraw waiting list request for course %d: %w", ref, err)
			}
		}
	}
	return nil
}

func (m *Matcher) courseByRef(ctx context.Context, refID int64) (*Course, error) {
	relevant, err := m.relevantCourses(ctx)
	if err != nil {
		return nil, err
	}
	for _, course := range relevant {
		if course.RefID == refID {
			return course, nil
		}
	}
	return nil, nil
}
