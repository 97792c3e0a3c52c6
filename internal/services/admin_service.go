package services

import (
	"context"

	"github.com/torao/kazzla/internal/apperrors"
	"github.com/torao/kazzla/internal/schemas"
	"github.com/torao/kazzla/internal/session"
)

// PermissionAdmin grants access to the administration endpoints.
const PermissionAdmin = "admin"

type AdminService struct {
	base
}

func NewAdminService(deps Dependencies) *AdminService {
	return &AdminService{base: newBase(deps)}
}

// EventLogs returns one page of the event log, newest first, with the total number of entries.
func (s *AdminService) EventLogs(ctx context.Context, sess session.Session, offset, limit int) ([]schemas.EventLog, int, error) {
	const op = "services.AdminService.EventLogs"

	account, err := s.currentAccount(ctx, sess, true)
	if err != nil {
		return nil, 0, err
	}
	if !account.Role.HasPermission(PermissionAdmin) {
		return nil, 0, apperrors.New(op, apperrors.ErrForbidden, "missing permission "+PermissionAdmin)
	}

	pool := s.pool()
	entries, err := s.events.List(ctx, pool, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.events.Count(ctx, pool)
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}
