package report

import "context"

// Scope is the set of subject ids a viewer may report on. All means no
// subject restriction (admin, or a student reading their own class).
type Scope struct {
	All        bool
	SubjectIDs []string
}

// Contains reports whether a subject id is visible in this scope.
func (s Scope) Contains(subjectID string) bool {
	if s.All {
		return true
	}
	for _, id := range s.SubjectIDs {
		if id == subjectID {
			return true
		}
	}
	return false
}

// resolveScope narrows the subject universe by role. A lecturer token
// without a backing profile is an authorization failure, never an empty
// scope.
func (s *Service) resolveScope(ctx context.Context, viewer Viewer) (Scope, error) {
	switch viewer.Role {
	case RoleLecturer:
		ok, err := s.store.LecturerExists(ctx, viewer.ID)
		if err != nil {
			return Scope{}, err
		}
		if !ok {
			return Scope{}, ErrUnauthorized
		}
		ids, err := s.store.LecturerSubjectIDs(ctx, viewer.ID)
		if err != nil {
			return Scope{}, err
		}
		return Scope{SubjectIDs: ids}, nil
	default:
		return Scope{All: true}, nil
	}
}
