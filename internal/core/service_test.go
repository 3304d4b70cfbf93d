package core_test

import (
	"carecore/internal/assets"
	"carecore/internal/blob"
	"carecore/internal/blob/blobtest"
	"carecore/internal/cascade"
	"carecore/internal/core"
	"carecore/internal/docstore"
	"carecore/internal/docstore/docstoretest"
	"carecore/internal/state"
	"carecore/internal/state/statetest"
	"carecore/pkg/domain"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

var fixedNow = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

type harness struct {
	svc   *core.Service
	local *state.Store
	docs  *docstoretest.Recorder
	blobs *blobtest.Recorder
}

// newHarness seeds g into the remote stores and, when seedLocal is set, the
// local store too.
func newHarness(t *testing.T, g statetest.Graph, seedLocal bool, opts ...core.Option) harness {
	t.Helper()
	ctx := context.Background()
	mem, err := docstore.Open(ctx, docstore.Config{Driver: docstore.DriverMemory})
	require.NoError(t, err)
	docs := docstoretest.NewRecorder(mem)
	blobs := blobtest.NewRecorder(blob.NewMemory())
	put := func(a domain.Asset) {
		if a.Path == "" {
			return
		}
		_, err := blobs.Put(ctx, a.Path, strings.NewReader("x"), blob.PutOptions{})
		require.NoError(t, err)
	}
	for _, r := range g.Recipients {
		require.NoError(t, mem.Set(ctx, docstore.Recipients, r.ID, r))
		put(r.Avatar)
	}
	for _, c := range g.Collections {
		require.NoError(t, mem.Set(ctx, docstore.Collections, c.ID, c))
		put(c.Cover)
	}
	for _, v := range g.Sets {
		require.NoError(t, mem.Set(ctx, docstore.Sets, v.ID, v))
		put(v.Image)
		put(v.Audio)
	}
	for _, c := range g.Contacts {
		require.NoError(t, mem.Set(ctx, docstore.EmergencyContacts, c.ID, c))
	}
	local := state.New()
	if seedLocal {
		local = statetest.Seed(g)
	}
	base := []core.Option{core.WithClock(func() time.Time { return fixedNow })}
	svc := core.NewService(local, docs, blobs, append(base, opts...)...)
	return harness{svc: svc, local: local, docs: docs, blobs: blobs}
}

func callStrings(calls []docstoretest.Call) []string {
	out := make([]string, 0, len(calls))
	for _, c := range calls {
		out = append(out, c.String())
	}
	return out
}

func TestDeleteRecipientsRemovesOwnedGraph(t *testing.T) {
	h := newHarness(t, statetest.Scenario(), true)

	rep, err := h.svc.DeleteRecipients(context.Background(), []string{"r1"})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"delete sets/s1",
		"delete sets/s2",
		"delete collections/c1",
		"delete emergency_contacts/ct1",
		"delete recipients/r1",
	}, callStrings(h.docs.Calls()))
	assert.Equal(t, []string{
		"recipients/r1/avatar/image/avatar.jpg",
		"recipients/r1/cover/image/c1.jpg",
		"recipients/r1/set/audio/s1.m4a",
		"recipients/r1/set/audio/s2.m4a",
		"recipients/r1/set/image/s1.jpg",
		"recipients/r1/set/image/s2.jpg",
	}, h.blobs.Deletes())
	assert.Equal(t, 6, rep.AssetsDeleted)
	assert.Empty(t, rep.AssetFailures)

	_, ok := h.local.Recipient("r1")
	assert.False(t, ok)
	_, ok = h.local.Collection("c1")
	assert.False(t, ok)
	_, ok = h.local.Contact("ct1")
	assert.False(t, ok)
	assert.Empty(t, h.local.SetsByCollectionID("c1"))

	snap := h.local.Export()
	require.Len(t, snap.Recipients, 1)
	assert.Equal(t, "r2", snap.Recipients[0].ID)
	assert.Len(t, snap.Collections, 1)
	assert.Len(t, snap.Sets, 1)
	assert.Len(t, snap.Contacts, 1)

	left, err := h.blobs.List(context.Background(), "recipients/")
	require.NoError(t, err)
	assert.Len(t, left, 4)
	for _, info := range left {
		assert.True(t, strings.HasPrefix(info.Key, assets.RecipientPrefix("r2")), info.Key)
	}
}

func TestDeleteRecipientsSkipsEmptyAssetPaths(t *testing.T) {
	g := statetest.Graph{Recipients: []domain.Recipient{{Base: domain.Base{ID: "r3"}, CaregiverID: statetest.Caregiver, FirstName: "No", LastName: "Avatar"}}}
	h := newHarness(t, g, true)

	rep, err := h.svc.DeleteRecipients(context.Background(), []string{"r3"})
	require.NoError(t, err)
	assert.Empty(t, h.blobs.Deletes())
	assert.Zero(t, rep.AssetsDeleted)
	assert.Equal(t, []string{"delete recipients/r3"}, callStrings(h.docs.Calls()))
}

func TestDeleteRecipientsRemoteFailureKeepsLocalState(t *testing.T) {
	h := newHarness(t, statetest.Scenario(), true)
	boom := errors.New("backend unavailable")
	h.docs.FailOn("delete", docstore.Collections, "c1", boom)

	_, err := h.svc.DeleteRecipients(context.Background(), []string{"r1"})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	var cerr *cascade.Error
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, cascade.PhaseDocuments, cerr.Phase)
	assert.Equal(t, "c1", cerr.ID)
	assert.Equal(t, []string{"s1", "s2"}, cerr.Completed[domain.EntitySet])

	assert.Empty(t, h.blobs.Deletes())
	for _, id := range []string{"s1", "s2"} {
		_, ok := h.local.Set(id)
		assert.True(t, ok, id)
	}
	_, ok := h.local.Recipient("r1")
	assert.True(t, ok)
}

func TestDeleteCollectionsLowersRecipientCount(t *testing.T) {
	h := newHarness(t, statetest.Scenario(), true)
	ctx := context.Background()

	rep, err := h.svc.DeleteCollections(ctx, []string{"c1"})
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Count(domain.EntityCollection))
	assert.Equal(t, 2, rep.Count(domain.EntitySet))
	assert.Equal(t, []string{
		"delete sets/s1",
		"delete sets/s2",
		"delete collections/c1",
		"update recipients/r1",
	}, callStrings(h.docs.Calls()))

	r1, ok := h.local.Recipient("r1")
	require.True(t, ok)
	assert.Equal(t, 0, r1.CollectionCount)
	assert.Equal(t, fixedNow, r1.UpdatedAt)

	var remote domain.Recipient
	require.NoError(t, h.docs.Get(ctx, docstore.Recipients, "r1", &remote))
	assert.Equal(t, 0, remote.CollectionCount)

	_, ok = h.local.Contact("ct1")
	assert.True(t, ok, "contacts are not owned by collections")
	_, ok = h.local.Collection("c2")
	assert.True(t, ok)
	r2, _ := h.local.Recipient("r2")
	assert.Equal(t, 1, r2.CollectionCount)
}

func TestDeleteSetsLowersCollectionCount(t *testing.T) {
	h := newHarness(t, statetest.Scenario(), true)

	_, err := h.svc.DeleteSets(context.Background(), []string{"s1", "ghost"})
	require.NoError(t, err)

	c1, _ := h.local.Collection("c1")
	assert.Equal(t, 1, c1.SetCount)
	assert.Equal(t, []string{
		"recipients/r1/set/audio/s1.m4a",
		"recipients/r1/set/image/s1.jpg",
	}, h.blobs.Deletes())
	_, ok := h.local.Set("s2")
	assert.True(t, ok)
}

func TestDeleteContacts(t *testing.T) {
	h := newHarness(t, statetest.Scenario(), true)

	rep, err := h.svc.DeleteContacts(context.Background(), []string{"ct1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"ct1"}, rep.Deleted[domain.EntityContact])
	assert.Empty(t, h.blobs.Deletes())
	_, ok := h.local.Contact("ct1")
	assert.False(t, ok)
	_, ok = h.local.Recipient("r1")
	assert.True(t, ok)
}

func TestPlanDoesNotTouchStores(t *testing.T) {
	h := newHarness(t, statetest.Scenario(), true)

	plan, err := h.svc.PlanRecipientDeletion([]string{"r1"})
	require.NoError(t, err)
	assert.Equal(t, 5, plan.Total())
	assert.Len(t, plan.Assets, 6)

	plan, err = h.svc.PlanCollectionDeletion([]string{"c2"})
	require.NoError(t, err)
	assert.Equal(t, []string{"s3"}, plan.IDs(domain.EntitySet))
	assert.Equal(t, []string{"c2"}, plan.IDs(domain.EntityCollection))

	assert.Empty(t, h.docs.Calls())
	assert.Empty(t, h.blobs.Deletes())
}

func TestCreateCollectionIncrementsRecipientCount(t *testing.T) {
	h := newHarness(t, statetest.Scenario(), true, core.WithIDGenerator(func() string { return "c9" }))
	ctx := context.Background()

	c, err := h.svc.CreateCollection(ctx, domain.Collection{RecipientID: "r2", Title: "Music"})
	require.NoError(t, err)
	assert.Equal(t, "c9", c.ID)
	assert.Equal(t, statetest.Caregiver, c.CaregiverID)
	assert.Equal(t, fixedNow, c.CreatedAt)
	assert.Equal(t, []string{"set collections/c9", "update recipients/r2"}, callStrings(h.docs.Calls()))

	r2, _ := h.local.Recipient("r2")
	assert.Equal(t, 2, r2.CollectionCount)
	var remote domain.Recipient
	require.NoError(t, h.docs.Get(ctx, docstore.Recipients, "r2", &remote))
	assert.Equal(t, 2, remote.CollectionCount)
	assert.Len(t, h.local.CollectionsByRecipientID("r2"), 2)
}

func TestCreateCollectionCountFailureKeepsCreatedCollection(t *testing.T) {
	h := newHarness(t, statetest.Scenario(), true, core.WithIDGenerator(func() string { return "c9" }))
	h.docs.FailOn("update", docstore.Recipients, "r2", errors.New("timeout"))

	_, err := h.svc.CreateCollection(context.Background(), domain.Collection{RecipientID: "r2", Title: "Music"})
	require.Error(t, err)
	_, ok := h.local.Collection("c9")
	assert.True(t, ok)
	r2, _ := h.local.Recipient("r2")
	assert.Equal(t, 1, r2.CollectionCount)
}

func TestCreateRequiresExistingParent(t *testing.T) {
	h := newHarness(t, statetest.Scenario(), true)
	ctx := context.Background()

	_, err := h.svc.CreateCollection(ctx, domain.Collection{RecipientID: "nobody"})
	var nf domain.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, domain.EntityRecipient, nf.Entity)

	_, err = h.svc.CreateSet(ctx, domain.Set{CollectionID: "nothing"})
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, domain.EntityCollection, nf.Entity)

	_, err = h.svc.CreateContact(ctx, domain.EmergencyContact{RecipientID: "nobody", Phones: []string{"+1"}})
	require.ErrorAs(t, err, &nf)

	assert.Empty(t, h.docs.Calls())
}

func TestCreateSet(t *testing.T) {
	h := newHarness(t, statetest.Scenario(), true, core.WithIDGenerator(func() string { return "s9" }))
	ctx := context.Background()

	v, err := h.svc.CreateSet(ctx, domain.Set{CollectionID: "c2", Image: domain.Asset{Title: "Tulips"}})
	require.NoError(t, err)
	assert.Equal(t, "r2", v.RecipientID)
	c2, _ := h.local.Collection("c2")
	assert.Equal(t, 2, c2.SetCount)

	_, err = h.svc.CreateSet(ctx, domain.Set{CollectionID: "c2", RecipientID: "r1"})
	var verr domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "recipient_id", verr.Field)
}

func TestCreateContactRequiresPhone(t *testing.T) {
	h := newHarness(t, statetest.Scenario(), true)
	ctx := context.Background()

	_, err := h.svc.CreateContact(ctx, domain.EmergencyContact{RecipientID: "r1", FirstName: "No", Phones: []string{" "}})
	var verr domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "phones", verr.Field)

	c, err := h.svc.CreateContact(ctx, domain.EmergencyContact{RecipientID: "r1", FirstName: "Mary", Phones: []string{"+15550199"}})
	require.NoError(t, err)
	assert.NotEmpty(t, c.ID)
	assert.Len(t, h.local.ContactsByRecipientID("r1"), 2)

	_, err = h.svc.UpdateContact(ctx, c.ID, domain.ContactUpdate{Phones: []string{}})
	require.ErrorAs(t, err, &verr)
}

func TestCreateRecipientRequiresCaregiver(t *testing.T) {
	h := newHarness(t, statetest.Graph{}, true)

	_, err := h.svc.CreateRecipient(context.Background(), domain.Recipient{FirstName: "Grace"})
	var verr domain.ValidationError
	require.ErrorAs(t, err, &verr)

	r, err := h.svc.CreateRecipient(context.Background(), domain.Recipient{CaregiverID: "cg2", FirstName: "Grace", LastName: "Hopper"})
	require.NoError(t, err)
	got, ok := h.local.Recipient(r.ID)
	require.True(t, ok)
	assert.Equal(t, "Grace Hopper", got.FullName())
}

func TestUpdateRecipientRemoteFailureIsReported(t *testing.T) {
	zc, logs := observer.New(zap.ErrorLevel)
	h := newHarness(t, statetest.Scenario(), true, core.WithLogger(zap.New(zc)))
	h.docs.FailOn("update", docstore.Recipients, "r1", errors.New("permission denied"))

	loc := "Kitchen"
	_, err := h.svc.UpdateRecipient(context.Background(), "r1", domain.RecipientUpdate{Location: &loc})
	require.Error(t, err)

	r1, _ := h.local.Recipient("r1")
	assert.Empty(t, r1.Location)
	entries := logs.FilterMessage("operation failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "update_recipient", entries[0].ContextMap()["operation"])
}

func TestUpdatesApplyRemoteThenLocal(t *testing.T) {
	h := newHarness(t, statetest.Scenario(), true)
	ctx := context.Background()

	fallen := true
	r1, err := h.svc.UpdateRecipient(ctx, "r1", domain.RecipientUpdate{Fallen: &fallen})
	require.NoError(t, err)
	assert.True(t, r1.Fallen)
	assert.Equal(t, fixedNow, r1.UpdatedAt)

	title := "Relatives"
	c1, err := h.svc.UpdateCollection(ctx, "c1", domain.CollectionUpdate{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "Relatives", c1.Title)

	audio := domain.Asset{Path: "recipients/r1/set/audio/new.m4a", Title: "Daughter"}
	s1, err := h.svc.UpdateSet(ctx, "s1", domain.SetUpdate{Audio: &audio})
	require.NoError(t, err)
	assert.Equal(t, audio, s1.Audio)

	var remote domain.Set
	require.NoError(t, h.docs.Get(ctx, docstore.Sets, "s1", &remote))
	assert.Equal(t, audio.Path, remote.Audio.Path)

	_, err = h.svc.UpdateSet(ctx, "ghost", domain.SetUpdate{Audio: &audio})
	var nf domain.NotFoundError
	require.ErrorAs(t, err, &nf)

	before := len(h.docs.Calls())
	_, err = h.svc.UpdateCollection(ctx, "c1", domain.CollectionUpdate{})
	require.NoError(t, err)
	assert.Len(t, h.docs.Calls(), before, "empty updates skip the remote call")
}

func TestLoadHydratesCaregiverGraph(t *testing.T) {
	g := statetest.Scenario()
	other := statetest.Recipient("r9", "Other", "Person")
	other.CaregiverID = "cg2"
	g.Recipients = append(g.Recipients, other)
	h := newHarness(t, g, false)
	h.local.AddRecipient(statetest.Recipient("stale", "Old", "Entry"))

	snap, err := h.svc.Load(context.Background(), statetest.Caregiver)
	require.NoError(t, err)
	assert.Len(t, snap.Recipients, 2)
	assert.Len(t, snap.Collections, 2)
	assert.Len(t, snap.Sets, 3)
	assert.Len(t, snap.Contacts, 2)
	_, ok := h.local.Recipient("stale")
	assert.False(t, ok)
	_, ok = h.local.Recipient("r9")
	assert.False(t, ok)
	assert.Equal(t, []string{"s1", "s2"}, h.local.SetIDsByCollectionIDs([]string{"c1"}))
}

func TestLoadFailureLeavesLocalStore(t *testing.T) {
	h := newHarness(t, statetest.Scenario(), true)
	h.docs.FailOn("query", docstore.Sets, "r2", errors.New("offline"))

	_, err := h.svc.Load(context.Background(), statetest.Caregiver)
	require.Error(t, err)
	assert.Len(t, h.local.Recipients(), 2)
	assert.Len(t, h.local.Sets(), 3)
}

func TestUploadAssetFallsBackToPublicURL(t *testing.T) {
	h := newHarness(t, statetest.Graph{}, true, core.WithAssetURLs("https://cdn.test/", 0))

	a, err := h.svc.UploadAsset(context.Background(), "r1", assets.KindAvatar, assets.MediaImage, "me.png", strings.NewReader("png"), "image/png")
	require.NoError(t, err)
	assert.Equal(t, "recipients/r1/avatar/image/me.png", a.Path)
	assert.Equal(t, "https://cdn.test/recipients/r1/avatar/image/me.png", a.URL)

	info, err := h.blobs.Head(context.Background(), a.Path)
	require.NoError(t, err)
	assert.Equal(t, "image/png", info.ContentType)
	assert.Equal(t, "r1", info.Metadata["recipient_id"])
}

func TestUploadAssetRejectsEscapingRecipientID(t *testing.T) {
	h := newHarness(t, statetest.Graph{}, true, core.WithLogger(nil))

	_, err := h.svc.UploadAsset(context.Background(), "r1/../r2", assets.KindAvatar, assets.MediaImage, "me.png", strings.NewReader("png"), "image/png")
	require.Error(t, err)
	keys, err := h.blobs.List(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, keys)
}
