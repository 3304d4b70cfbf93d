package core

import (
	"carecore/internal/assets"
	"carecore/internal/docstore"
	"carecore/internal/state"
	"carecore/pkg/domain"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"
)

func queryDocs[T any](ctx context.Context, docs docstore.Store, coll docstore.Collection, field, value string) ([]T, error) {
	raw, err := docs.Query(ctx, coll, docstore.Filter{Field: field, Value: value})
	if err != nil {
		return nil, fmt.Errorf("query %s by %s=%s: %w", coll, field, value, err)
	}
	out := make([]T, 0, len(raw))
	for _, b := range raw {
		var v T
		if err := json.Unmarshal(b, &v); err != nil {
			return nil, fmt.Errorf("decode %s document: %w", coll, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// Load replaces the local store with every document owned by caregiverID.
// The local store is left untouched when any query fails.
func (s *Service) Load(ctx context.Context, caregiverID string) (_ state.Snapshot, err error) {
	defer s.report("load", time.Now(), &err)
	var snap state.Snapshot
	snap.Recipients, err = queryDocs[domain.Recipient](ctx, s.docs, docstore.Recipients, "caregiver_id", caregiverID)
	if err != nil {
		return state.Snapshot{}, err
	}
	for _, r := range snap.Recipients {
		cols, err := queryDocs[domain.Collection](ctx, s.docs, docstore.Collections, "recipient_id", r.ID)
		if err != nil {
			return state.Snapshot{}, err
		}
		sets, err := queryDocs[domain.Set](ctx, s.docs, docstore.Sets, "recipient_id", r.ID)
		if err != nil {
			return state.Snapshot{}, err
		}
		contacts, err := queryDocs[domain.EmergencyContact](ctx, s.docs, docstore.EmergencyContacts, "recipient_id", r.ID)
		if err != nil {
			return state.Snapshot{}, err
		}
		snap.Collections = append(snap.Collections, cols...)
		snap.Sets = append(snap.Sets, sets...)
		snap.Contacts = append(snap.Contacts, contacts...)
	}
	s.local.Import(snap)
	return s.local.Export(), nil
}

// UploadAsset stores r under the recipient's asset path and returns the
// reference to persist on the owning entity.
func (s *Service) UploadAsset(ctx context.Context, recipientID string, kind assets.Kind, media assets.Media, fileName string, r io.Reader, contentType string) (_ domain.Asset, err error) {
	defer s.report("upload_asset", time.Now(), &err)
	return s.uploader.Upload(ctx, recipientID, kind, media, fileName, r, contentType)
}
