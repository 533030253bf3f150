package dispatch

import (
	"fmt"
	"strings"

	"github.com/edly-io/nodebb-sync/internal/task"
)

// lastLogin is the column the platform touches on every sign in.
const lastLogin = "last_login"

// RegisterDefaults installs the platform event table.
func RegisterDefaults(d *Dispatcher) {
	d.Register(UserCreated, userCreated)
	d.Register(UserUpdated, userUpdated)
	d.Register(UserDeleted, userDeleted)
	d.Register(ProfileUpdated, profileUpdated)
	d.Register(CourseCreated, courseCreated)
	d.Register(CategoryDeleted, categoryDeleted)
	d.Register(EnrollmentChanged, enrollmentChanged)
}

func missing(ev Event, section string) error {
	return fmt.Errorf("%w: %s without %s", ErrInvalidEvent, ev.Type, section)
}

func userCreated(ev Event) ([]Job, error) {
	if ev.User == nil {
		return nil, missing(ev, "user")
	}

	return []Job{{Name: task.UserCreate, Payload: task.CreateUser{
		PlatformUserID: ev.User.ID,
		Username:       ev.User.Username,
		Email:          ev.User.Email,
		JoinDate:       ev.User.DateJoined.Unix(),
	}}}, nil
}

// userUpdated forwards email and name changes. Sign ins only touch last_login and are dropped.
func userUpdated(ev Event) ([]Job, error) {
	if ev.User == nil {
		return nil, missing(ev, "user")
	}

	if len(ev.ChangedFields) == 1 && ev.ChangedFields[0] == lastLogin {
		return nil, nil
	}

	changed := make(map[string]bool, len(ev.ChangedFields))
	for _, f := range ev.ChangedFields {
		changed[f] = true
	}

	all := len(changed) == 0
	fields := map[string]any{}

	if (all || changed["email"]) && ev.User.Email != "" {
		fields["email"] = ev.User.Email
	}

	if all || changed["first_name"] || changed["last_name"] {
		if name := strings.TrimSpace(ev.User.FirstName + " " + ev.User.LastName); name != "" {
			fields["fullname"] = name
		}
	}

	if len(fields) == 0 {
		return nil, nil
	}

	return []Job{{Name: task.UserUpdateProfile, Payload: task.UpdateProfile{
		Username: ev.User.Username,
		Fields:   fields,
	}}}, nil
}

func userDeleted(ev Event) ([]Job, error) {
	if ev.User == nil {
		return nil, missing(ev, "user")
	}

	return []Job{{Name: task.UserDelete, Payload: task.DeleteUser{Username: ev.User.Username}}}, nil
}

func profileUpdated(ev Event) ([]Job, error) {
	if ev.Profile == nil {
		return nil, missing(ev, "profile")
	}

	return []Job{{Name: task.UserUpdateProfile, Payload: task.UpdateProfile{
		Username: ev.Profile.Username,
		Fields:   task.ProfileFields(ev.Profile.Name, ev.Profile.City, ev.Profile.Country, ev.Profile.YearOfBirth),
	}}}, nil
}

func courseCreated(ev Event) ([]Job, error) {
	if ev.Course == nil {
		return nil, missing(ev, "course")
	}

	payload, err := task.NewCourse(ev.Course.CourseKey, ev.Course.DisplayName)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidEvent, err)
	}

	return []Job{{Name: task.CategoryCreate, Payload: payload}}, nil
}

func categoryDeleted(ev Event) ([]Job, error) {
	if ev.Course == nil {
		return nil, missing(ev, "course")
	}

	return []Job{{Name: task.CategoryDelete, Payload: task.CourseRef{CourseKey: ev.Course.CourseKey}}}, nil
}

// enrollmentChanged joins on activation and leaves on deactivation. A row created inactive was never joined.
func enrollmentChanged(ev Event) ([]Job, error) {
	if ev.Enrollment == nil {
		return nil, missing(ev, "enrollment")
	}

	payload := task.Membership{Username: ev.Enrollment.Username, CourseKey: ev.Enrollment.CourseKey}

	switch {
	case ev.Enrollment.IsActive:
		return []Job{{Name: task.GroupJoin, Payload: payload}}, nil
	case !ev.Enrollment.Created:
		return []Job{{Name: task.GroupUnjoin, Payload: payload}}, nil
	default:
		return nil, nil
	}
}
