package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rasaeats/api/internal/enum"
	"github.com/rasaeats/api/internal/model"
	"github.com/rasaeats/api/internal/sequence"
	"github.com/rasaeats/api/internal/store"
	"golang.org/x/crypto/bcrypt"
)

// ProfileService creates and reads customer and staff profiles. Customer
// UIDs come from the same transactional counter as orders; the staff
// profile is the fixed singleton assigned to the designated staff email.
type ProfileService struct {
	store      store.Store
	seq        *sequence.Sequencer
	staffEmail string
}

// NewProfileService creates a ProfileService. staffEmail designates which
// signup becomes the staff singleton.
func NewProfileService(s store.Store, seq *sequence.Sequencer, staffEmail string) *ProfileService {
	return &ProfileService{store: s, seq: seq, staffEmail: strings.ToLower(staffEmail)}
}

// CreateProfileInput is the validated signup payload.
type CreateProfileInput struct {
	Name     string
	Phone    string
	Gender   string
	Email    string
	PhotoURL string
	Password string
}

// Create registers a profile. Role is decided once here and never changes:
// the designated staff email gets the fixed staff UID, everyone else gets a
// counter-minted customer UID. The UID mint and the profile write share one
// transaction, so concurrent signups cannot collide.
func (s *ProfileService) Create(ctx context.Context, in CreateProfileInput) (model.Profile, error) {
	if in.Email == "" || in.Password == "" {
		return model.Profile{}, ErrMissingCredentials
	}
	if in.Name == "" {
		return model.Profile{}, ErrMissingName
	}
	email := strings.ToLower(in.Email)

	if existing, err := s.GetByEmail(ctx, email); err == nil && existing.UID != "" {
		return model.Profile{}, ErrEmailTaken
	} else if err != nil && !errors.Is(err, ErrProfileNotFound) {
		return model.Profile{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return model.Profile{}, fmt.Errorf("hash password: %w", err)
	}

	profile := model.Profile{
		Name:           in.Name,
		Phone:          in.Phone,
		Gender:         in.Gender,
		Email:          email,
		PhotoURL:       in.PhotoURL,
		HashedPassword: string(hash),
	}

	if email == s.staffEmail {
		profile.UID = enum.StaffProfileID
		profile.Role = enum.RoleStaff
		err = s.seq.Do(ctx, func(ctx context.Context, tx store.Tx) error {
			var existing model.Profile
			err := tx.Get(ctx, enum.ColProfiles, enum.StaffProfileID, &existing)
			if err == nil {
				return ErrStaffExists
			}
			if !errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("check staff profile: %w", err)
			}
			return tx.Set(ctx, enum.ColProfiles, enum.StaffProfileID, profile)
		})
		if err != nil {
			return model.Profile{}, err
		}
		return profile, nil
	}

	profile.Role = enum.RoleCustomer
	err = s.seq.Do(ctx, func(ctx context.Context, tx store.Tx) error {
		uid, err := sequence.NextInTx(ctx, tx, enum.SeqCustomers, enum.PrefixCustomer, enum.IDWidth)
		if err != nil {
			return err
		}
		profile.UID = uid
		return tx.Set(ctx, enum.ColProfiles, uid, profile)
	})
	if err != nil {
		return model.Profile{}, err
	}
	return profile, nil
}

// Get returns a profile by UID.
func (s *ProfileService) Get(ctx context.Context, uid string) (model.Profile, error) {
	var p model.Profile
	if err := s.store.Get(ctx, enum.ColProfiles, uid, &p); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return model.Profile{}, fmt.Errorf("%w: %s", ErrProfileNotFound, uid)
		}
		return model.Profile{}, fmt.Errorf("get profile: %w", err)
	}
	return p, nil
}

// GetByEmail returns the profile registered under the email, used by login.
func (s *ProfileService) GetByEmail(ctx context.Context, email string) (model.Profile, error) {
	var profiles []model.Profile
	err := s.store.Query(ctx, enum.ColProfiles,
		[]store.Filter{store.Where("email", strings.ToLower(email))}, &profiles)
	if err != nil {
		return model.Profile{}, fmt.Errorf("query profiles: %w", err)
	}
	if len(profiles) == 0 {
		return model.Profile{}, fmt.Errorf("%w: %s", ErrProfileNotFound, email)
	}
	return profiles[0], nil
}

// Points returns the current loyalty balance.
func (s *ProfileService) Points(ctx context.Context, uid string) (int64, error) {
	p, err := s.Get(ctx, uid)
	if err != nil {
		return 0, err
	}
	return p.Points, nil
}
