package users

import "time"

// User is a user record as held by the authoritative store. The JSON form is
// also the cached snapshot, so it carries every field.
type User struct {
	ID           int64      `json:"id"`
	Email        string     `json:"email"`
	Password     string     `json:"password"`
	Name         string     `json:"name"`
	FlagActive   bool       `json:"flag_active"`
	ExpirationAt *time.Time `json:"expiration_at"`
	InsertAt     time.Time  `json:"insert_at"`
	UpdateAt     time.Time  `json:"update_at"`
}

// clone returns a copy that shares no pointers with u.
func (u User) clone() User {
	if u.ExpirationAt != nil {
		at := *u.ExpirationAt
		u.ExpirationAt = &at
	}
	return u
}

// CreateInput carries the fields accepted on creation.
type CreateInput struct {
	Email        string     `json:"email" validate:"required,email"`
	Password     string     `json:"password" validate:"required,min=6"`
	Name         string     `json:"name" validate:"required"`
	FlagActive   *bool      `json:"flag_active"`
	ExpirationAt *time.Time `json:"expiration_at"`
}

// UpdateInput is a partial update. Nil fields keep their current value.
type UpdateInput struct {
	Email        *string    `json:"email" validate:"omitempty,email"`
	Password     *string    `json:"password" validate:"omitempty,min=6"`
	Name         *string    `json:"name" validate:"omitempty,min=1"`
	FlagActive   *bool      `json:"flag_active"`
	ExpirationAt *time.Time `json:"expiration_at"`
}

// newUser applies creation defaults: active unless stated, no expiration.
func (in CreateInput) newUser() User {
	active := true
	if in.FlagActive != nil {
		active = *in.FlagActive
	}
	return User{
		Email:        in.Email,
		Password:     in.Password,
		Name:         in.Name,
		FlagActive:   active,
		ExpirationAt: in.ExpirationAt,
	}
}

// apply merges the supplied fields over current. ExpirationAt can be replaced
// but not cleared; an existing null stays null.
func (in UpdateInput) apply(current User) User {
	merged := current
	if in.Email != nil {
		merged.Email = *in.Email
	}
	if in.Password != nil {
		merged.Password = *in.Password
	}
	if in.Name != nil {
		merged.Name = *in.Name
	}
	if in.FlagActive != nil {
		merged.FlagActive = *in.FlagActive
	}
	if in.ExpirationAt != nil {
		at := *in.ExpirationAt
		merged.ExpirationAt = &at
	}
	return merged
}
