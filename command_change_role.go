package rolesync

import (
	"context"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

type ChangeRoleMessage struct {
	IdentityID string `json:"identity_id"`
	Role       string `json:"role"`
}

func (e ChangeRoleMessage) Type() string { return "profile.role.change" }

func (e ChangeRoleMessage) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.IdentityID, validation.Required, is.UUIDv4),
		validation.Field(&e.Role, validation.Required, validation.In(RoleUser, RoleAdmin)),
	)
}

type ChangeRoleHandler struct {
	sync *Synchronizer
}

func NewChangeRoleHandler(sync *Synchronizer) *ChangeRoleHandler {
	return &ChangeRoleHandler{sync: sync}
}

func (h *ChangeRoleHandler) Execute(ctx context.Context, event ChangeRoleMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during role change",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *ChangeRoleHandler) execute(ctx context.Context, event ChangeRoleMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	if err := event.Validate(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid role change message")
	}

	id, err := uuid.Parse(event.IdentityID)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid identity id")
	}

	if _, err := h.sync.ChangeRole(ctx, id, Role(event.Role)); err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "role change transaction failed")
	}

	return nil
}

type ClearRoleMessage struct {
	IdentityID string `json:"identity_id"`
}

func (e ClearRoleMessage) Type() string { return "profile.role.clear" }

func (e ClearRoleMessage) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.IdentityID, validation.Required, is.UUIDv4),
	)
}

type ClearRoleHandler struct {
	sync *Synchronizer
}

func NewClearRoleHandler(sync *Synchronizer) *ClearRoleHandler {
	return &ClearRoleHandler{sync: sync}
}

func (h *ClearRoleHandler) Execute(ctx context.Context, event ClearRoleMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	if err := event.Validate(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid role clear message")
	}

	id, err := uuid.Parse(event.IdentityID)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid identity id")
	}

	if _, err := h.sync.ClearRole(ctx, id); err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "role clear transaction failed")
	}

	return nil
}
