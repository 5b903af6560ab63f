package planner

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"meal_planner/internal/storage/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	p     *Planner
	store *memory.Storage
	host  int64
	other int64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := memory.New()

	host, err := store.SaveUser(context.Background(), "host", "Host", "", []byte("x"))
	require.NoError(t, err)
	other, err := store.SaveUser(context.Background(), "other", "Other", "", []byte("x"))
	require.NoError(t, err)

	return &fixture{
		p:     New(slog.New(slog.DiscardHandler), store),
		store: store,
		host:  host.ID,
		other: other.ID,
	}
}

func TestCreateGuest(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	g, err := f.p.CreateGuest(ctx, f.host, "  Ann  ")
	require.NoError(t, err)
	assert.Equal(t, "Ann", g.Name)
	assert.Equal(t, f.host, g.UserID)

	_, err = f.p.CreateGuest(ctx, f.host, "   ")
	require.ErrorIs(t, err, ErrInvalidInput)

	guests, err := f.p.ListGuests(ctx, f.host)
	require.NoError(t, err)
	require.Len(t, guests, 1)

	guests, err = f.p.ListGuests(ctx, f.other)
	require.NoError(t, err)
	assert.Empty(t, guests)
}

func TestCreateDishAndMeal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	d, err := f.p.CreateDish(ctx, f.host, "Paella", " rice ", "main")
	require.NoError(t, err)
	assert.Equal(t, "rice", d.Description)
	assert.Equal(t, "main", d.Category)

	_, err = f.p.CreateDish(ctx, f.host, "", "", "")
	require.ErrorIs(t, err, ErrInvalidInput)

	date := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	m, err := f.p.CreateMeal(ctx, f.host, "Dinner", date, "")
	require.NoError(t, err)
	assert.True(t, m.Date.Equal(date))

	_, err = f.p.CreateMeal(ctx, f.host, "Dinner", time.Time{}, "")
	require.ErrorIs(t, err, ErrInvalidInput)

	dishes, err := f.p.ListDishes(ctx, f.host)
	require.NoError(t, err)
	assert.Len(t, dishes, 1)

	meals, err := f.p.ListMeals(ctx, f.host)
	require.NoError(t, err)
	assert.Len(t, meals, 1)
}

func TestInviteGuest(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	meal, err := f.p.CreateMeal(ctx, f.host, "Dinner", time.Now(), "")
	require.NoError(t, err)
	guest, err := f.p.CreateGuest(ctx, f.host, "Ann")
	require.NoError(t, err)
	foreign, err := f.p.CreateGuest(ctx, f.other, "Stranger")
	require.NoError(t, err)

	require.NoError(t, f.p.InviteGuest(ctx, f.host, meal.ID, guest.ID))
	require.NoError(t, f.p.InviteGuest(ctx, f.host, meal.ID, guest.ID), "repeat invite is a no-op")

	tests := []struct {
		name    string
		userID  int64
		mealID  int64
		guestID int64
		wantErr error
	}{
		{name: "meal of another user", userID: f.other, mealID: meal.ID, guestID: foreign.ID, wantErr: ErrForbidden},
		{name: "guest of another user", userID: f.host, mealID: meal.ID, guestID: foreign.ID, wantErr: ErrForbidden},
		{name: "missing meal", userID: f.host, mealID: 9999, guestID: guest.ID, wantErr: ErrNotFound},
		{name: "missing guest", userID: f.host, mealID: meal.ID, guestID: 9999, wantErr: ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := f.p.InviteGuest(ctx, tt.userID, tt.mealID, tt.guestID)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestRankDish(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	guest, err := f.p.CreateGuest(ctx, f.host, "Ann")
	require.NoError(t, err)
	dish, err := f.p.CreateDish(ctx, f.host, "Soup", "", "")
	require.NoError(t, err)
	foreignDish, err := f.p.CreateDish(ctx, f.other, "Cake", "", "")
	require.NoError(t, err)

	first, err := f.p.RankDish(ctx, f.host, guest.ID, dish.ID, 1)
	require.NoError(t, err)

	second, err := f.p.RankDish(ctx, f.host, guest.ID, dish.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 3, second.Rank)

	for _, rank := range []int{0, 4, -1} {
		_, err := f.p.RankDish(ctx, f.host, guest.ID, dish.ID, rank)
		require.ErrorIs(t, err, ErrInvalidInput, "rank %d", rank)
	}

	_, err = f.p.RankDish(ctx, f.host, guest.ID, foreignDish.ID, 2)
	require.ErrorIs(t, err, ErrForbidden)

	_, err = f.p.RankDish(ctx, f.other, guest.ID, foreignDish.ID, 2)
	require.ErrorIs(t, err, ErrForbidden)

	_, err = f.p.RankDish(ctx, f.host, 9999, dish.ID, 2)
	require.ErrorIs(t, err, ErrNotFound)

	_, err = f.p.RankDish(ctx, f.host, guest.ID, 9999, 2)
	require.ErrorIs(t, err, ErrNotFound)
}
