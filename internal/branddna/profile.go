package branddna

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"
)

// MaxProfiles is the number of profiles a user may keep.
const MaxProfiles = 2

var (
	ErrNotFound     = errors.New("brand DNA profile not found")
	ErrLimitReached = errors.New("LIMIT_REACHED: Brand DNA 数量已达上限 (2个)。请先删除一个旧的 DNA，才能创建新的。")
	ErrMissingName  = errors.New("profile name is required")
)

// Profile is a saved Brand DNA, stored in the visual_profiles collection.
type Profile struct {
	ID                 string    `json:"id" firestore:"-"`
	UID                string    `json:"uid" firestore:"uid"`
	Name               string    `json:"name" firestore:"name"`
	Description        string    `json:"description" firestore:"description"`
	LogoURL            string    `json:"logoUrl,omitempty" firestore:"logoUrl"`
	StyleReferenceURL  string    `json:"styleReferenceUrl,omitempty" firestore:"styleReferenceUrl"`
	VisualStyle        string    `json:"visualStyle" firestore:"visualStyle"`
	ColorPalette       string    `json:"colorPalette" firestore:"colorPalette"`
	Mood               string    `json:"mood" firestore:"mood"`
	NegativeConstraint string    `json:"negativeConstraint" firestore:"negativeConstraint"`
	MotionStyle        string    `json:"motionStyle,omitempty" firestore:"motionStyle"`
	IsActive           bool      `json:"isActive" firestore:"isActive"`
	CreatedAt          time.Time `json:"createdAt" firestore:"createdAt"`
}

// ProfileUpdate carries the fields a PATCH may change. Nil fields are left alone.
type ProfileUpdate struct {
	Name               *string `json:"name,omitempty"`
	Description        *string `json:"description,omitempty"`
	LogoURL            *string `json:"logoUrl,omitempty"`
	StyleReferenceURL  *string `json:"styleReferenceUrl,omitempty"`
	VisualStyle        *string `json:"visualStyle,omitempty"`
	ColorPalette       *string `json:"colorPalette,omitempty"`
	Mood               *string `json:"mood,omitempty"`
	NegativeConstraint *string `json:"negativeConstraint,omitempty"`
	MotionStyle        *string `json:"motionStyle,omitempty"`
}

// fields lists the set fields keyed by their stored name.
func (u ProfileUpdate) fields() map[string]string {
	out := map[string]string{}
	add := func(key string, v *string) {
		if v != nil {
			out[key] = *v
		}
	}
	add("name", u.Name)
	add("description", u.Description)
	add("logoUrl", u.LogoURL)
	add("styleReferenceUrl", u.StyleReferenceURL)
	add("visualStyle", u.VisualStyle)
	add("colorPalette", u.ColorPalette)
	add("mood", u.Mood)
	add("negativeConstraint", u.NegativeConstraint)
	add("motionStyle", u.MotionStyle)
	return out
}

func (u ProfileUpdate) apply(p *Profile) {
	for key, v := range u.fields() {
		switch key {
		case "name":
			p.Name = v
		case "description":
			p.Description = v
		case "logoUrl":
			p.LogoURL = v
		case "styleReferenceUrl":
			p.StyleReferenceURL = v
		case "visualStyle":
			p.VisualStyle = v
		case "colorPalette":
			p.ColorPalette = v
		case "mood":
			p.Mood = v
		case "negativeConstraint":
			p.NegativeConstraint = v
		case "motionStyle":
			p.MotionStyle = v
		}
	}
}

// Store persists profiles. Every method is scoped to the owning uid; profiles
// owned by someone else behave as missing.
type Store interface {
	Get(ctx context.Context, uid, id string) (*Profile, error)
	List(ctx context.Context, uid string) ([]*Profile, error)
	Create(ctx context.Context, uid string, p Profile) (*Profile, error)
	Update(ctx context.Context, uid, id string, u ProfileUpdate) (*Profile, error)
	Delete(ctx context.Context, uid, id string) error
	SetActive(ctx context.Context, uid, id string) (*Profile, error)
}

func validateNew(p Profile) error {
	if strings.TrimSpace(p.Name) == "" {
		return ErrMissingName
	}
	return nil
}

func sortNewestFirst(profiles []*Profile) {
	sort.SliceStable(profiles, func(i, j int) bool {
		return profiles[i].CreatedAt.After(profiles[j].CreatedAt)
	})
}
