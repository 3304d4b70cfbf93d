// Package assets names recipient media in blob storage and uploads it.
//
// Every object lives under
//
//	recipients/{recipientID}/{avatar|cover|set}/{audio|image}/{fileName}
//
// and is referenced from documents by that path and a download URL.
package assets

import (
	"carecore/internal/blob"
	"carecore/pkg/domain"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"
)

// Kind is the owner slot of an asset.
type Kind string

// Media is the content class of an asset.
type Media string

const (
	KindAvatar Kind = "avatar"
	KindCover  Kind = "cover"
	KindSet    Kind = "set"

	MediaAudio Media = "audio"
	MediaImage Media = "image"
)

// ParseKind validates s as a Kind.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(s)); k {
	case KindAvatar, KindCover, KindSet:
		return k, nil
	}
	return "", fmt.Errorf("unknown asset kind %q", s)
}

// ParseMedia validates s as a Media.
func ParseMedia(s string) (Media, error) {
	switch m := Media(strings.ToLower(s)); m {
	case MediaAudio, MediaImage:
		return m, nil
	}
	return "", fmt.Errorf("unknown asset media %q", s)
}

// Path builds the storage key for an asset. The recipient id must be a single
// path segment so the key stays under that recipient's prefix.
func Path(recipientID string, kind Kind, media Media, fileName string) (string, error) {
	if err := checkSegment(recipientID); err != nil {
		return "", err
	}
	name := path.Base(strings.TrimSpace(fileName))
	if name == "." || name == "/" || name == ".." {
		return "", fmt.Errorf("asset path: invalid file name %q", fileName)
	}
	if _, err := ParseKind(string(kind)); err != nil {
		return "", err
	}
	if _, err := ParseMedia(string(media)); err != nil {
		return "", err
	}
	return RecipientPrefix(recipientID) + path.Join(string(kind), string(media), name), nil
}

func checkSegment(recipientID string) error {
	if strings.TrimSpace(recipientID) == "" {
		return errors.New("asset path: recipient id required")
	}
	if strings.ContainsAny(recipientID, `/\`) || recipientID == "." || strings.Contains(recipientID, "..") || path.Clean(recipientID) != recipientID {
		return fmt.Errorf("asset path: invalid recipient id %q", recipientID)
	}
	return nil
}

// RecipientPrefix is the key prefix under which all of a recipient's media live.
func RecipientPrefix(recipientID string) string {
	return "recipients/" + recipientID + "/"
}

// NonEmpty drops blank paths and duplicates, keeping first-seen order.
func NonEmpty(paths []string) []string {
	seen := make(map[string]struct{}, len(paths))
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if strings.TrimSpace(p) == "" {
			continue
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}

// Uploader stores asset bytes and resolves their download URL.
type Uploader struct {
	Store blob.Store
	// PublicBaseURL is prefixed to the path when the store cannot sign URLs.
	PublicBaseURL string
	// URLExpiry bounds signed URLs; zero selects the store default.
	URLExpiry time.Duration
}

// Upload writes r under the asset path and returns the asset reference.
func (u Uploader) Upload(ctx context.Context, recipientID string, kind Kind, media Media, fileName string, r io.Reader, contentType string) (domain.Asset, error) {
	key, err := Path(recipientID, kind, media, fileName)
	if err != nil {
		return domain.Asset{}, err
	}
	if _, err := u.Store.Put(ctx, key, r, blob.PutOptions{
		ContentType: contentType,
		Metadata:    map[string]string{"recipient_id": recipientID, "kind": string(kind)},
	}); err != nil {
		return domain.Asset{}, fmt.Errorf("upload %s: %w", key, err)
	}
	url, err := u.URL(ctx, key)
	if err != nil {
		return domain.Asset{}, err
	}
	return domain.Asset{URL: url, Path: key}, nil
}

// URL returns a download URL for key, preferring a signed URL.
func (u Uploader) URL(ctx context.Context, key string) (string, error) {
	url, err := u.Store.PresignURL(ctx, key, blob.SignedURLOptions{Expiry: u.URLExpiry})
	if err == nil {
		return url, nil
	}
	if !errors.Is(err, blob.ErrUnsupported) {
		return "", fmt.Errorf("sign %s: %w", key, err)
	}
	return strings.TrimRight(u.PublicBaseURL, "/") + "/" + key, nil
}

