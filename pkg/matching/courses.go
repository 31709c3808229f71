package matching

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// Course is one registered course carrying vhb course number
// patterns. RefID is the repository reference the host platform links
// and assigns by; ObjID the underlying object.
type Course struct {
	RefID       int64
	ObjID       int64
	Title       string
	Description string
	LVPatterns  []string

	// NeedsConfirmation marks courses whose subscription policy
	// requires an explicit join request (waiting list) instead of a
	// direct membership add.
	NeedsConfirmation bool
}

// Role is a local course role, e.g. the evaluator role of one course.
type Role struct {
	ID    int64
	Title string
}

// CourseStore reads registered courses from the host course
// repository.
type CourseStore interface {
	// RelevantCourses returns all active courses tagged with a vhb
	// course number pattern, from both metadata generations.
	RelevantCourses(ctx context.Context) ([]*Course, error)
}

// MembershipStore writes course memberships and role assignments into
// the host stores.
type MembershipStore interface {
	IsMember(ctx context.Context, userID, refID int64) (bool, error)
	// AddMember adds the user as course member. Safe to call twice.
	AddMember(ctx context.Context, userID, refID int64) error
	// AddRecommendation records the course on the user's personal
	// recommendation list. Safe to call twice.
	AddRecommendation(ctx context.Context, userID, refID int64) error
	LocalRoles(ctx context.Context, refID int64) ([]Role, error)
	AssignRole(ctx context.Context, userID, roleID int64) error
	RequestWaitingList(ctx context.Context, userID, refID int64) error
	RemoveWaitingListRequest(ctx context.Context, userID, refID int64) error
}

// LVKeywordPrefix marks course number patterns in the current keyword
// metadata.
const LVKeywordPrefix = "LV_"

// SQLCourseStore reads courses from the host platform's SQL schema.
type SQLCourseStore struct {
	db *sql.DB
}

// NewSQLCourseStore creates a course store on the host database.
func NewSQLCourseStore(db *sql.DB) *SQLCourseStore {
	return &SQLCourseStore{db: db}
}

// RelevantCourses implements CourseStore. Patterns live in two schema
// generations: legacy identifier rows with catalog 'vhb' and current
// keyword rows prefixed LV_. Offline courses and deleted references
// are skipped.
func (s *SQLCourseStore) RelevantCourses(ctx context.Context) ([]*Course, error) {
	byRef := make(map[int64]*Course)
	var order []int64

	collect := func(query string) error {
		rows, err := s.db.QueryContext(ctx, query)
		if err != nil {
			return fmt.Errorf("failed to scan course metadata: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var refID, objID int64
			var title, description, entry string
			var confirmation bool
			if err := rows.Scan(&refID, &objID, &title, &description, &entry, &confirmation); err != nil {
				return fmt.Errorf("failed to scan course row: %w", err)
			}
			pattern := strings.TrimSpace(entry)
			if pattern == "" {
				continue
			}
			course, ok := byRef[refID]
			if !ok {
				course = &Course{
					RefID:             refID,
					ObjID:             objID,
					Title:             title,
					Description:       description,
					NeedsConfirmation: confirmation,
				}
				byRef[refID] = course
				order = append(order, refID)
			}
			course.LVPatterns = append(course.LVPatterns, pattern)
		}
		return rows.Err()
	}

	// legacy generation: identifier metadata with catalog 'vhb'
	if err := collect(`
		SELECT r.ref_id, o.obj_id, o.title, o.description, m.entry, c.subscription_confirmation
		FROM il_meta_identifier m
		INNER JOIN object_data o ON m.obj_id = o.obj_id
		INNER JOIN object_reference r ON r.obj_id = o.obj_id
		INNER JOIN crs_settings c ON c.obj_id = o.obj_id
		WHERE m.obj_type = 'crs'
		  AND m.catalog = 'vhb'
		  AND o.offline = 0
		  AND r.deleted = 0
	`); err != nil {
		return nil, err
	}

	// current generation: LV_ prefixed keywords
	if err := collect(`
		SELECT r.ref_id, o.obj_id, o.title, o.description, k.keyword, c.subscription_confirmation
		FROM il_meta_keyword k
		INNER JOIN object_data o ON k.obj_id = o.obj_id
		INNER JOIN object_reference r ON r.obj_id = o.obj_id
		INNER JOIN crs_settings c ON c.obj_id = o.obj_id
		WHERE k.obj_type = 'crs'
		  AND k.keyword LIKE 'LV\_%' ESCAPE '\'
		  AND o.offline = 0
		  AND r.deleted = 0
	`); err != nil {
		return nil, err
	}

	courses := make([]*Course, 0, len(order))
	for _, refID := range order {
		courses = append(courses, byRef[refID])
	}
	return courses, nil
}

// MatchesCourseNumber reports whether any of the course's patterns
// matches the requested course number. Semester independent courses
// carry patterns like LV_328_822_1_*_1.
func (c *Course) MatchesCourseNumber(lvnr string) bool {
	for _, pattern := range c.LVPatterns {
		if Glob(strings.TrimSpace(pattern), lvnr) {
			return true
		}
	}
	return false
}
