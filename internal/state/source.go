package state

import "carecore/pkg/domain"

// ChildIDs resolves dependents for cascading deletion: the ids of child rows
// whose foreignKey is one of parentIDs. Unknown pairs yield nothing.
func (s *Store) ChildIDs(child domain.EntityType, foreignKey string, parentIDs []string) []string {
	switch {
	case child == domain.EntityCollection && foreignKey == "recipient_id":
		return s.CollectionIDsByRecipientIDs(parentIDs)
	case child == domain.EntitySet && foreignKey == "collection_id":
		return s.SetIDsByCollectionIDs(parentIDs)
	case child == domain.EntitySet && foreignKey == "recipient_id":
		return s.SetIDsByRecipientIDs(parentIDs)
	case child == domain.EntityContact && foreignKey == "recipient_id":
		return s.ContactIDsByRecipientIDs(parentIDs)
	}
	return nil
}

// AssetPaths returns every blob path referenced by the listed rows,
// including empty ones. Missing ids are skipped.
func (s *Store) AssetPaths(entity domain.EntityType, ids []string) []string {
	var out []string
	for _, id := range ids {
		switch entity {
		case domain.EntityRecipient:
			if r, ok := s.Recipient(id); ok {
				out = append(out, r.Avatar.Path)
			}
		case domain.EntityCollection:
			if c, ok := s.Collection(id); ok {
				out = append(out, c.Cover.Path)
			}
		case domain.EntitySet:
			if v, ok := s.Set(id); ok {
				out = append(out, v.Image.Path, v.Audio.Path)
			}
		}
	}
	return out
}
