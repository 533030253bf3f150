package nodebb

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/edly-io/nodebb-sync/internal/db/controller/relation"
)

const usersPath = "/api/v2/users"

// NewUser is a platform user to create in the forum.
type NewUser struct {
	PlatformUserID uint64
	Username       string
	Email          string
	JoinDate       int64 // unix seconds
}

// Users manages forum users and their mapping rows.
type Users struct {
	client *Client
	db     *gorm.DB
}

// NewUsers returns the user operations.
func NewUsers(client *Client, db *gorm.DB) *Users {
	return &Users{client: client, db: db}
}

// Create creates the forum user and, on 200, maps it to the platform user.
func (u *Users) Create(ctx context.Context, user NewUser) (int, Result) {
	payload := Payload{
		"username": user.Username,
		"email":    user.Email,
		"joindate": strconv.FormatInt(user.JoinDate, 10),
	}

	status, res := u.client.Post(ctx, usersPath, payload)
	if status != http.StatusOK {
		return status, res
	}

	uid, ok := res.Int("uid")
	if !ok {
		return conflict(errMissingField("uid"))
	}

	if _, err := relation.CreateUser(u.db, user.PlatformUserID, user.Username, uid); err != nil {
		return conflict(err)
	}

	return status, res
}

// Update changes the profile fields of the forum user mapped to username, acting as that user.
func (u *Users) Update(ctx context.Context, username string, fields Payload) (int, Result) {
	actor, err := u.actor(username)
	if err != nil {
		return StatusConnectionError, Result{Reason: err.Error()}
	}

	payload := make(Payload, len(fields)+1)
	for k, v := range fields {
		payload[k] = v
	}
	payload[ActorField] = actor

	return u.client.Put(ctx, userPath(actor), payload)
}

// Delete removes the forum user mapped to username and, on 200, its mapping row.
func (u *Users) Delete(ctx context.Context, username string) (int, Result) {
	actor, err := u.actor(username)
	if err != nil {
		return StatusConnectionError, Result{Reason: err.Error()}
	}

	status, res := u.client.Delete(ctx, userPath(actor), Payload{ActorField: actor})
	if status != http.StatusOK {
		return status, res
	}

	if err = relation.DeleteUser(u.db, username); err != nil && !errors.Is(err, relation.ErrUserMappingNotFound) {
		return conflict(err)
	}

	return status, res
}

// actor resolves the forum uid of username. An unmapped user resolves to nil.
func (u *Users) actor(username string) (any, error) {
	uid, err := relation.ForumUID(u.db, username)
	switch {
	case errors.Is(err, relation.ErrUserMappingNotFound):
		log.Debug().Str("username", username).Msg("no forum user mapped")
		return nil, nil
	case err != nil:
		return nil, err
	default:
		return uid, nil
	}
}

func userPath(actor any) string {
	uid, ok := actor.(int)
	if !ok {
		return usersPath
	}

	return usersPath + "/" + strconv.Itoa(uid)
}
