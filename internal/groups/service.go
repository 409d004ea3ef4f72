package groups

import (
	"context"
	"net/http"
	"time"

	"github.com/splitledger/splitledger/internal/shared"
)

// Repository defines the persistence operations the group service needs.
// Insert must create the group row and the owner's membership atomically.
type Repository interface {
	Insert(ctx context.Context, g *Group) error
	Get(ctx context.Context, groupID int64) (*Group, error)
	ListForUser(ctx context.Context, userID int64) ([]Group, error)
	Members(ctx context.Context, groupID int64) ([]Member, error)
	IsMember(ctx context.Context, groupID, userID int64) (bool, error)
	UserExists(ctx context.Context, userID int64) (bool, error)
	AddMember(ctx context.Context, groupID, userID int64, at time.Time) error
	RemoveMember(ctx context.Context, groupID, userID int64) error
}

// GroupWithMembers is the full detail view of a group.
type GroupWithMembers struct {
	Group   Group
	Members []Member
}

// Service implements group business rules over a Repository.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService constructs a group Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

func (s *Service) fetch(ctx context.Context, groupID int64) (*Group, error) {
	group, err := s.repo.Get(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if group == nil {
		return nil, shared.Errorf(shared.CodeGroupNotFound, http.StatusNotFound, "Group %d does not exist.", groupID)
	}
	return group, nil
}

func (s *Service) requireMember(ctx context.Context, groupID, userID int64) error {
	ok, err := s.repo.IsMember(ctx, groupID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return shared.Errorf(shared.CodeForbidden, http.StatusForbidden, "You are not a member of group %d.", groupID)
	}
	return nil
}

// Create makes a new group. The creator becomes owner and first member in
// one step; a group can never exist without its owner enrolled.
func (s *Service) Create(ctx context.Context, name string, ownerID int64) (*GroupWithMembers, error) {
	group := &Group{Name: name, OwnerUserID: ownerID, CreatedAt: s.now().UTC()}
	if err := s.repo.Insert(ctx, group); err != nil {
		return nil, err
	}
	members, err := s.repo.Members(ctx, group.ID)
	if err != nil {
		return nil, err
	}
	return &GroupWithMembers{Group: *group, Members: members}, nil
}

// List returns the groups the user belongs to, oldest first, without
// member lists.
func (s *Service) List(ctx context.Context, userID int64) ([]Group, error) {
	return s.repo.ListForUser(ctx, userID)
}

// Get returns full group detail including members. Non-members get 403:
// the group's existence is already confirmed by the 404 check, but its
// contents are member-only.
func (s *Service) Get(ctx context.Context, groupID, callerID int64) (*GroupWithMembers, error) {
	group, err := s.fetch(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if err := s.requireMember(ctx, groupID, callerID); err != nil {
		return nil, err
	}
	members, err := s.repo.Members(ctx, groupID)
	if err != nil {
		return nil, err
	}
	return &GroupWithMembers{Group: *group, Members: members}, nil
}

// AddMember enrolls a user. Owner-only.
func (s *Service) AddMember(ctx context.Context, groupID, callerID, targetID int64) error {
	group, err := s.fetch(ctx, groupID)
	if err != nil {
		return err
	}
	if callerID != group.OwnerUserID {
		return shared.Errorf(shared.CodeForbidden, http.StatusForbidden, "Only the group owner may add members.")
	}

	exists, err := s.repo.UserExists(ctx, targetID)
	if err != nil {
		return err
	}
	if !exists {
		return shared.Errorf(shared.CodeUserNotFound, http.StatusNotFound, "User %d does not exist.", targetID)
	}

	alreadyMember, err := s.repo.IsMember(ctx, groupID, targetID)
	if err != nil {
		return err
	}
	if alreadyMember {
		return shared.Errorf(shared.CodeAlreadyMember, http.StatusConflict, "User %d is already a member of group %d.", targetID, groupID)
	}

	return s.repo.AddMember(ctx, groupID, targetID, s.now().UTC())
}

// RemoveMember unenrolls a user. The owner may remove anyone; everyone
// else may only remove themselves.
func (s *Service) RemoveMember(ctx context.Context, groupID, callerID, targetID int64) error {
	group, err := s.fetch(ctx, groupID)
	if err != nil {
		return err
	}
	if err := s.requireMember(ctx, groupID, callerID); err != nil {
		return err
	}

	isOwner := callerID == group.OwnerUserID
	isSelf := callerID == targetID
	if !isOwner && !isSelf {
		return shared.Errorf(shared.CodeForbidden, http.StatusForbidden,
			"You may only remove yourself from a group unless you are the owner.")
	}

	isMember, err := s.repo.IsMember(ctx, groupID, targetID)
	if err != nil {
		return err
	}
	if !isMember {
		return shared.Errorf(shared.CodeUserNotFound, http.StatusNotFound,
			"User %d is not a member of group %d.", targetID, groupID)
	}

	return s.repo.RemoveMember(ctx, groupID, targetID)
}
