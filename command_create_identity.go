package rolesync

import (
	"context"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
)

type CreateIdentityMessage struct {
	Email     string         `json:"email"`
	Role      string         `json:"role"`
	Claims    map[string]any `json:"claims"`
	UseHashid bool
}

func (e CreateIdentityMessage) Type() string { return "identity.create" }

func (e CreateIdentityMessage) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&e.Role, validation.In(RoleUser, RoleAdmin)),
	)
}

type CreateIdentityHandler struct {
	sync *Synchronizer
}

func NewCreateIdentityHandler(sync *Synchronizer) *CreateIdentityHandler {
	return &CreateIdentityHandler{sync: sync}
}

func (h *CreateIdentityHandler) Execute(ctx context.Context, event CreateIdentityMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during identity creation",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *CreateIdentityHandler) execute(ctx context.Context, event CreateIdentityMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	if err := event.Validate(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid identity message")
	}

	identity := &Identity{Claims: event.Claims}
	if event.UseHashid {
		if id, err := hashid.NewUUID(event.Email); err == nil {
			identity.ID = id
		}
	}

	// Email and role promotion commit or roll back together with the
	// identity insert.
	if _, err := h.sync.ProvisionIdentity(ctx, identity, event.Email, Role(event.Role)); err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryConflict, "could not provision identity")
	}

	return nil
}
