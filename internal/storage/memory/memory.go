// Package memory is a process-local implementation of every repository the
// service needs. It enforces the same uniqueness and reference rules as the
// postgres schema, and is used for local runs and tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"meal_planner/internal/models"
	"meal_planner/internal/storage"
)

type rankKey struct {
	guestID int64
	dishID  int64
}

type Storage struct {
	mu sync.RWMutex

	now func() time.Time
	seq int64

	users      map[int64]models.User
	usernames  map[string]int64
	tokens     map[string]models.RefreshToken
	guests     map[int64]models.Guest
	dishes     map[int64]models.Dish
	meals      map[int64]models.Meal
	mealGuests map[int64]map[int64]struct{}
	ranks      map[rankKey]models.DishRank
}

func New() *Storage {
	return &Storage{
		now:        time.Now,
		users:      make(map[int64]models.User),
		usernames:  make(map[string]int64),
		tokens:     make(map[string]models.RefreshToken),
		guests:     make(map[int64]models.Guest),
		dishes:     make(map[int64]models.Dish),
		meals:      make(map[int64]models.Meal),
		mealGuests: make(map[int64]map[int64]struct{}),
		ranks:      make(map[rankKey]models.DishRank),
	}
}

func (s *Storage) nextID() int64 {
	s.seq++
	return s.seq
}

func (s *Storage) SaveUser(_ context.Context, username, name, email string, passHash []byte) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.usernames[username]; ok {
		return models.User{}, storage.ErrUserExists
	}

	now := s.now()
	u := models.User{
		ID:        s.nextID(),
		Username:  username,
		Name:      name,
		Email:     email,
		PassHash:  passHash,
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.users[u.ID] = u
	s.usernames[username] = u.ID

	return u, nil
}

func (s *Storage) User(_ context.Context, username string) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.usernames[username]
	if !ok {
		return models.User{}, storage.ErrUserNotFound
	}

	return s.users[id], nil
}

// UserCount is used by tests asserting that conflicts create no rows.
func (s *Storage) UserCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.users)
}

func (s *Storage) SaveRefreshToken(_ context.Context, token models.RefreshToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[token.UserID]; !ok {
		return storage.ErrReferenceNotFound
	}

	s.tokens[token.TokenHash] = token

	return nil
}

func (s *Storage) RefreshToken(_ context.Context, tokenHash string) (models.RefreshToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rt, ok := s.tokens[tokenHash]
	if !ok {
		return models.RefreshToken{}, storage.ErrRefreshTokenNotFound
	}

	return rt, nil
}

func (s *Storage) RevokeRefreshToken(_ context.Context, tokenHash string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rt, ok := s.tokens[tokenHash]
	if !ok || rt.RevokedAt != nil {
		return nil
	}

	rt.RevokedAt = &at
	s.tokens[tokenHash] = rt

	return nil
}

func (s *Storage) RotateRefreshToken(_ context.Context, oldHash string, next models.RefreshToken, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rt, ok := s.tokens[oldHash]
	if !ok || rt.RevokedAt != nil || rt.IsExpired(at) {
		return storage.ErrRefreshTokenNotFound
	}

	rt.RevokedAt = &at
	s.tokens[oldHash] = rt
	s.tokens[next.TokenHash] = next

	return nil
}

func (s *Storage) SaveGuest(_ context.Context, userID int64, name string) (models.Guest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[userID]; !ok {
		return models.Guest{}, storage.ErrReferenceNotFound
	}

	now := s.now()
	g := models.Guest{
		ID:        s.nextID(),
		UserID:    userID,
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.guests[g.ID] = g

	return g, nil
}

func (s *Storage) Guest(_ context.Context, id int64) (models.Guest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g, ok := s.guests[id]
	if !ok {
		return models.Guest{}, storage.ErrNotFound
	}

	return g, nil
}

func (s *Storage) Guests(_ context.Context, userID int64) ([]models.Guest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	res := make([]models.Guest, 0)
	for _, g := range s.guests {
		if g.UserID == userID {
			res = append(res, g)
		}
	}

	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })

	return res, nil
}

func (s *Storage) SaveDish(_ context.Context, d models.Dish) (models.Dish, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[d.UserID]; !ok {
		return models.Dish{}, storage.ErrReferenceNotFound
	}

	now := s.now()
	d.ID = s.nextID()
	d.CreatedAt = now
	d.UpdatedAt = now
	s.dishes[d.ID] = d

	return d, nil
}

func (s *Storage) Dish(_ context.Context, id int64) (models.Dish, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.dishes[id]
	if !ok {
		return models.Dish{}, storage.ErrNotFound
	}

	return d, nil
}

func (s *Storage) Dishes(_ context.Context, userID int64) ([]models.Dish, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	res := make([]models.Dish, 0)
	for _, d := range s.dishes {
		if d.UserID == userID {
			res = append(res, d)
		}
	}

	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })

	return res, nil
}

func (s *Storage) SaveMeal(_ context.Context, m models.Meal) (models.Meal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[m.UserID]; !ok {
		return models.Meal{}, storage.ErrReferenceNotFound
	}

	m.ID = s.nextID()
	s.meals[m.ID] = m

	return m, nil
}

func (s *Storage) Meal(_ context.Context, id int64) (models.Meal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.meals[id]
	if !ok {
		return models.Meal{}, storage.ErrNotFound
	}

	return m, nil
}

func (s *Storage) Meals(_ context.Context, userID int64) ([]models.Meal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	res := make([]models.Meal, 0)
	for _, m := range s.meals {
		if m.UserID == userID {
			res = append(res, m)
		}
	}

	sort.Slice(res, func(i, j int) bool {
		if !res[i].Date.Equal(res[j].Date) {
			return res[i].Date.Before(res[j].Date)
		}
		return res[i].ID < res[j].ID
	})

	return res, nil
}

func (s *Storage) AddMealGuest(_ context.Context, mealID, guestID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.meals[mealID]; !ok {
		return storage.ErrReferenceNotFound
	}
	if _, ok := s.guests[guestID]; !ok {
		return storage.ErrReferenceNotFound
	}

	members, ok := s.mealGuests[mealID]
	if !ok {
		members = make(map[int64]struct{})
		s.mealGuests[mealID] = members
	}
	members[guestID] = struct{}{}

	return nil
}

func (s *Storage) UpsertDishRank(_ context.Context, guestID, dishID int64, rank int) (models.DishRank, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.guests[guestID]; !ok {
		return models.DishRank{}, storage.ErrReferenceNotFound
	}
	if _, ok := s.dishes[dishID]; !ok {
		return models.DishRank{}, storage.ErrReferenceNotFound
	}

	now := s.now()
	key := rankKey{guestID: guestID, dishID: dishID}

	r, ok := s.ranks[key]
	if !ok {
		r = models.DishRank{
			ID:        s.nextID(),
			GuestID:   guestID,
			DishID:    dishID,
			CreatedAt: now,
		}
	}
	r.Rank = rank
	r.UpdatedAt = now
	s.ranks[key] = r

	return r, nil
}

// MealMenu averages the ranks submitted by the meal's guests per dish,
// highest average first, ties by dish name.
func (s *Storage) MealMenu(_ context.Context, mealID int64) ([]models.MenuItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type acc struct {
		sum   int
		count int
	}

	members := s.mealGuests[mealID]
	totals := make(map[int64]*acc)

	for key, r := range s.ranks {
		if _, invited := members[key.guestID]; !invited {
			continue
		}

		a, ok := totals[key.dishID]
		if !ok {
			a = &acc{}
			totals[key.dishID] = a
		}
		a.sum += r.Rank
		a.count++
	}

	menu := make([]models.MenuItem, 0, len(totals))
	for dishID, a := range totals {
		d := s.dishes[dishID]
		menu = append(menu, models.MenuItem{
			DishID:      dishID,
			Name:        d.Name,
			Description: d.Description,
			AverageRank: float64(a.sum) / float64(a.count),
		})
	}

	sort.Slice(menu, func(i, j int) bool {
		if menu[i].AverageRank != menu[j].AverageRank {
			return menu[i].AverageRank > menu[j].AverageRank
		}
		if menu[i].Name != menu[j].Name {
			return menu[i].Name < menu[j].Name
		}
		return menu[i].DishID < menu[j].DishID
	})

	return menu, nil
}
