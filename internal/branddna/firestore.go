package branddna

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const profilesCollection = "visual_profiles"

// FirestoreStore keeps profiles in the visual_profiles collection. Limit and
// activation changes run in a transaction so concurrent creates cannot exceed
// MaxProfiles.
type FirestoreStore struct {
	client *firestore.Client
}

func NewFirestoreStore(client *firestore.Client) *FirestoreStore {
	return &FirestoreStore{client: client}
}

func (s *FirestoreStore) col() *firestore.CollectionRef {
	return s.client.Collection(profilesCollection)
}

func (s *FirestoreStore) Get(ctx context.Context, uid, id string) (*Profile, error) {
	snapshot, err := s.col().Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("branddna.FirestoreStore.Get: %w", err)
	}
	return decodeOwned(snapshot, uid)
}

func (s *FirestoreStore) List(ctx context.Context, uid string) ([]*Profile, error) {
	snapshots, err := s.col().Where("uid", "==", uid).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("branddna.FirestoreStore.List: %w", err)
	}
	profiles := make([]*Profile, 0, len(snapshots))
	for _, snap := range snapshots {
		p, err := decode(snap)
		if err != nil {
			return nil, fmt.Errorf("branddna.FirestoreStore.List: %w", err)
		}
		profiles = append(profiles, p)
	}
	sortNewestFirst(profiles)
	return profiles, nil
}

func (s *FirestoreStore) Create(ctx context.Context, uid string, p Profile) (*Profile, error) {
	if err := validateNew(p); err != nil {
		return nil, err
	}
	p.UID = uid
	p.CreatedAt = time.Now().UTC()
	ref := s.col().NewDoc()

	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		existing, err := tx.Documents(s.col().Where("uid", "==", uid)).GetAll()
		if err != nil {
			return err
		}
		if len(existing) >= MaxProfiles {
			return ErrLimitReached
		}
		if p.IsActive {
			for _, snap := range existing {
				if err := tx.Update(snap.Ref, []firestore.Update{{Path: "isActive", Value: false}}); err != nil {
					return err
				}
			}
		}
		return tx.Create(ref, p)
	})
	if err != nil {
		if errors.Is(err, ErrLimitReached) {
			return nil, err
		}
		return nil, fmt.Errorf("branddna.FirestoreStore.Create: %w", err)
	}

	p.ID = ref.ID
	return &p, nil
}

func (s *FirestoreStore) Update(ctx context.Context, uid, id string, u ProfileUpdate) (*Profile, error) {
	current, err := s.Get(ctx, uid, id)
	if err != nil {
		return nil, err
	}
	fields := u.fields()
	if len(fields) == 0 {
		return current, nil
	}

	updates := make([]firestore.Update, 0, len(fields))
	for path, v := range fields {
		updates = append(updates, firestore.Update{Path: path, Value: v})
	}
	if _, err := s.col().Doc(id).Update(ctx, updates); err != nil {
		return nil, fmt.Errorf("branddna.FirestoreStore.Update: %w", err)
	}
	u.apply(current)
	return current, nil
}

func (s *FirestoreStore) Delete(ctx context.Context, uid, id string) error {
	if _, err := s.Get(ctx, uid, id); err != nil {
		return err
	}
	if _, err := s.col().Doc(id).Delete(ctx); err != nil {
		return fmt.Errorf("branddna.FirestoreStore.Delete: %w", err)
	}
	return nil
}

func (s *FirestoreStore) SetActive(ctx context.Context, uid, id string) (*Profile, error) {
	var activated *Profile
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		target, err := tx.Get(s.col().Doc(id))
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return ErrNotFound
			}
			return err
		}
		p, err := decodeOwned(target, uid)
		if err != nil {
			return err
		}
		siblings, err := tx.Documents(s.col().Where("uid", "==", uid)).GetAll()
		if err != nil {
			return err
		}
		for _, snap := range siblings {
			if snap.Ref.ID == id {
				continue
			}
			if err := tx.Update(snap.Ref, []firestore.Update{{Path: "isActive", Value: false}}); err != nil {
				return err
			}
		}
		p.IsActive = true
		activated = p
		return tx.Update(target.Ref, []firestore.Update{{Path: "isActive", Value: true}})
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("branddna.FirestoreStore.SetActive: %w", err)
	}
	return activated, nil
}

func decode(snapshot *firestore.DocumentSnapshot) (*Profile, error) {
	var p Profile
	if err := snapshot.DataTo(&p); err != nil {
		return nil, fmt.Errorf("failed to parse profile %s: %w", snapshot.Ref.ID, err)
	}
	p.ID = snapshot.Ref.ID
	return &p, nil
}

func decodeOwned(snapshot *firestore.DocumentSnapshot, uid string) (*Profile, error) {
	if !snapshot.Exists() {
		return nil, ErrNotFound
	}
	p, err := decode(snapshot)
	if err != nil {
		return nil, err
	}
	if p.UID != uid {
		return nil, ErrNotFound
	}
	return p, nil
}
