package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/repairscan/internal/database"
	"github.com/ahmetcoskunkizilkaya/repairscan/internal/models"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func newStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(database.NewTestDB(t))
}

func seedUser(t *testing.T, s *Store, clerkID string) models.User {
	t.Helper()
	u := models.User{ClerkID: clerkID, Email: clerkID + "@example.com"}
	require.NoError(t, s.DB().Create(&u).Error)
	return u
}

func seedItem(t *testing.T, s *Store, owner uuid.UUID, brand, model, category string) models.Item {
	t.Helper()
	item := models.Item{UserID: owner, Category: category, Brand: strPtr(brand), Model: strPtr(model), Confidence: 0.8}
	require.NoError(t, s.CreateItem(context.Background(), &item))
	return item
}

func TestItemOwnership(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	alice := seedUser(t, s, "user_alice")
	bob := seedUser(t, s, "user_bob")
	item := seedItem(t, s, alice.ID, "Apple", "iPhone 12", "smartphone")

	got, err := s.GetItem(ctx, alice.ID, item.ID)
	require.NoError(t, err)
	assert.Equal(t, item.ID, got.ID)

	_, err = s.GetItem(ctx, bob.ID, item.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.GetItem(ctx, alice.ID, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListItemsPaginates(t *testing.T) {
	s := newStore(t)
	u := seedUser(t, s, "user_pager")
	for i := 0; i < 5; i++ {
		seedItem(t, s, u.ID, "Brand", "Model", "appliance")
	}

	items, total, err := s.ListItems(context.Background(), u.ID, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	assert.Len(t, items, 2)

	items, _, err = s.ListItems(context.Background(), u.ID, 3, 2)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestNormalizePage(t *testing.T) {
	tests := []struct{ page, size, wantPage, wantSize int }{
		{0, 0, 1, DefaultPageSize},
		{-3, 500, 1, MaxPageSize},
		{4, 10, 4, 10},
	}
	for _, tt := range tests {
		p, sz := NormalizePage(tt.page, tt.size)
		assert.Equal(t, tt.wantPage, p)
		assert.Equal(t, tt.wantSize, sz)
	}
}

func TestSearchItems(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	alice := seedUser(t, s, "user_alice")
	bob := seedUser(t, s, "user_bob")
	phone := seedItem(t, s, alice.ID, "Apple", "iPhone 12", "smartphone")
	seedItem(t, s, alice.ID, "Dyson", "V8", "vacuum")
	seedItem(t, s, bob.ID, "Apple", "iPad Air", "tablet")

	got, err := s.SearchItems(ctx, alice.ID, SearchFilter{Brand: "apple"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	if diff := cmp.Diff(phone, got[0], cmpopts.IgnoreFields(models.Item{}, "CreatedAt", "UpdatedAt"), cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("search result mismatch (-want +got):\n%s", diff)
	}

	got, err = s.SearchItems(ctx, alice.ID, SearchFilter{Query: "v8"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "vacuum", got[0].Category)

	got, err = s.SearchItems(ctx, alice.ID, SearchFilter{Category: "SMARTPHONE"})
	require.NoError(t, err)
	assert.Len(t, got, 1)

	got, err = s.SearchItems(ctx, alice.ID, SearchFilter{Query: "%"})
	require.NoError(t, err)
	assert.Empty(t, got, "wildcards are matched literally")
}

func TestDefectInheritsItemOwner(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	alice := seedUser(t, s, "user_alice")
	bob := seedUser(t, s, "user_bob")
	item := seedItem(t, s, alice.ID, "Bosch", "Serie 4", "dishwasher")

	d := models.Defect{ItemID: item.ID, Symptoms: []string{"not draining"}}
	require.NoError(t, s.CreateDefect(ctx, alice.ID, &d))
	assert.Equal(t, item.UserID, d.UserID)
	assert.Equal(t, models.SeverityMedium, d.Severity)

	foreign := models.Defect{ItemID: item.ID, Symptoms: []string{"leaking"}}
	assert.ErrorIs(t, s.CreateDefect(ctx, bob.ID, &foreign), ErrNotFound)

	_, err := s.GetDefect(ctx, bob.ID, d.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	got, err := s.GetDefect(ctx, alice.ID, d.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Item)
	assert.Equal(t, got.UserID, got.Item.UserID)

	list, err := s.ListDefects(ctx, alice.ID, &item.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
	list, err = s.ListDefects(ctx, bob.ID, nil)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func seedDefect(t *testing.T, s *Store, owner uuid.UUID) models.Defect {
	t.Helper()
	item := seedItem(t, s, owner, "LG", "WM3400", "washer")
	d := models.Defect{ItemID: item.ID, Symptoms: []string{"won't spin"}, Severity: models.SeverityHigh}
	require.NoError(t, s.CreateDefect(context.Background(), owner, &d))
	return d
}

func TestListFixPathsOrdering(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	u := seedUser(t, s, "user_fix")
	d := seedDefect(t, s, u.ID)

	base := time.Now().Add(-time.Hour)
	mk := func(title string, score float64, offset time.Duration, src models.SourceType) models.FixPath {
		fp := models.FixPath{
			DefectID: d.ID, Title: title, Difficulty: models.DifficultyEasy, RiskLevel: models.RiskLow,
			ProvenanceScore: score, SourceType: src, CreatedAt: base.Add(offset),
		}
		require.NoError(t, s.CreateFixPath(ctx, &fp))
		return fp
	}
	ai := mk("ai", 0.7, 0, models.SourceAIGenerated)
	official := mk("official", 0.95, time.Minute, models.SourceOfficial)
	communityA := mk("community-a", 0.8, 2*time.Minute, models.SourceCommunity)
	communityB := mk("community-b", 0.8, 3*time.Minute, models.SourceCommunity)

	paths, err := s.ListFixPaths(ctx, d.ID)
	require.NoError(t, err)
	var ids []uuid.UUID
	for _, p := range paths {
		ids = append(ids, p.ID)
	}
	assert.Equal(t, []uuid.UUID{official.ID, communityA.ID, communityB.ID, ai.ID}, ids)
}

func TestCreateFixPathRejectsBadScore(t *testing.T) {
	s := newStore(t)
	err := s.CreateFixPath(context.Background(), &models.FixPath{ProvenanceScore: 1.5})
	assert.Error(t, err)
}

func TestGetFixPathThroughOwnedDefect(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	alice := seedUser(t, s, "user_alice")
	bob := seedUser(t, s, "user_bob")
	d := seedDefect(t, s, alice.ID)

	part := models.Part{PartNumber: "DC31-00054A", Name: "Drain pump", EstimatedCost: 40}
	require.NoError(t, s.UpsertPart(ctx, &part))

	fp := models.FixPath{
		DefectID: d.ID, Title: "Replace drain pump", Difficulty: models.DifficultyModerate,
		RiskLevel: models.RiskMedium, ProvenanceScore: 0.9, SourceType: models.SourceIFixit,
		Steps: []models.FixStep{{Order: 1, Title: "Unplug", Instructions: []string{"Unplug the washer"}}},
		Parts: []models.Part{part},
	}
	require.NoError(t, s.CreateFixPath(ctx, &fp))

	got, err := s.GetFixPath(ctx, alice.ID, fp.ID)
	require.NoError(t, err)
	require.Len(t, got.Parts, 1)
	assert.Equal(t, "DC31-00054A", got.Parts[0].PartNumber)
	assert.Equal(t, "Unplug", got.Steps[0].Title)

	_, err = s.GetFixPath(ctx, bob.ID, fp.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFindParts(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	part := models.Part{
		PartNumber: "WPW10130913", Name: "Door latch", EstimatedCost: 12,
		CompatibleModels:       []string{"WDF520PADM", "KDTE334GPS"},
		AlternativePartNumbers: []string{"W10130913"},
	}
	require.NoError(t, s.UpsertPart(ctx, &part))

	got, err := s.FindPart(ctx, "wpw10130913")
	require.NoError(t, err)
	assert.Equal(t, part.ID, got.ID)

	got, err = s.FindPart(ctx, "W10130913")
	require.NoError(t, err)
	assert.Equal(t, part.ID, got.ID)

	_, err = s.FindPart(ctx, "W1013")
	assert.ErrorIs(t, err, ErrNotFound, "partial numbers must not match")

	got, err = s.FindPartByModel(ctx, "kdte334gps")
	require.NoError(t, err)
	assert.Equal(t, part.ID, got.ID)

	part.EstimatedCost = 15
	require.NoError(t, s.UpsertPart(ctx, &models.Part{PartNumber: "WPW10130913", Name: "Door latch v2", EstimatedCost: 15}))
	got, err = s.FindPart(ctx, "WPW10130913")
	require.NoError(t, err)
	assert.Equal(t, part.ID, got.ID)
	assert.Equal(t, 15.0, got.EstimatedCost)
}

func TestDeviceLookupCaseInsensitive(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	dev := models.CatalogDevice{Brand: "Apple", Model: "iPhone 12", Category: "smartphone", ReleaseYear: 2020, RepairabilityScore: 6}
	require.NoError(t, s.UpsertDevice(ctx, &dev))

	got, err := s.FindDevice(ctx, "  APPLE ", "iphone 12")
	require.NoError(t, err)
	assert.Equal(t, dev.ID, got.ID)

	require.NoError(t, s.UpsertDevice(ctx, &models.CatalogDevice{Brand: "apple", Model: "IPHONE 12", Category: "smartphone", ReleaseYear: 2021}))
	got, err = s.FindDevice(ctx, "Apple", "iPhone 12")
	require.NoError(t, err)
	assert.Equal(t, dev.ID, got.ID)
	assert.Equal(t, 2021, got.ReleaseYear)

	_, err = s.FindDevice(ctx, "Apple", "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteUserDataCascades(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	alice := seedUser(t, s, "user_alice")
	bob := seedUser(t, s, "user_bob")
	d := seedDefect(t, s, alice.ID)
	keep := seedDefect(t, s, bob.ID)

	part := models.Part{PartNumber: "P-1", Name: "Belt"}
	require.NoError(t, s.UpsertPart(ctx, &part))
	fp := models.FixPath{DefectID: d.ID, Title: "t", Difficulty: models.DifficultyEasy, RiskLevel: models.RiskLow,
		ProvenanceScore: 0.7, SourceType: models.SourceAIGenerated, Parts: []models.Part{part}}
	require.NoError(t, s.CreateFixPath(ctx, &fp))
	sub := models.Subscription{UserID: &alice.ID, StripeSubscriptionID: "sub_1", Status: models.SubscriptionActive}
	require.NoError(t, s.DB().Create(&sub).Error)

	require.NoError(t, s.DeleteUserData(ctx, alice.ID))

	count := func(model interface{}, where string, args ...interface{}) int64 {
		var n int64
		require.NoError(t, s.DB().Model(model).Where(where, args...).Count(&n).Error)
		return n
	}
	assert.Zero(t, count(&models.User{}, "id = ?", alice.ID))
	assert.Zero(t, count(&models.Item{}, "user_id = ?", alice.ID))
	assert.Zero(t, count(&models.Defect{}, "user_id = ?", alice.ID))
	assert.Zero(t, count(&models.FixPath{}, "defect_id = ?", d.ID))
	assert.Zero(t, count(&models.Subscription{}, "stripe_subscription_id = ?", "sub_1"))
	assert.Equal(t, int64(1), count(&models.Part{}, "part_number = ?", "P-1"), "parts are shared reference data")

	var links int64
	require.NoError(t, s.DB().Table("fix_path_parts").Count(&links).Error)
	assert.Zero(t, links)

	_, err := s.GetDefect(ctx, bob.ID, keep.ID)
	assert.NoError(t, err)
}

func TestTransactionRollsBack(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	u := seedUser(t, s, "user_tx")

	err := s.Transaction(ctx, func(tx *Store) error {
		item := models.Item{UserID: u.ID, Category: "lamp"}
		require.NoError(t, tx.CreateItem(ctx, &item))
		return assert.AnError
	})
	assert.ErrorIs(t, err, assert.AnError)

	items, total, err := s.ListItems(ctx, u.ID, 1, 20)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, items)
}
