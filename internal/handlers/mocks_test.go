package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"ctfhub/internal/apperrors"
	"ctfhub/internal/logger"
	"ctfhub/internal/models"
	"ctfhub/internal/services"
	"ctfhub/internal/utils"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
	logger.InitLogger()
}

const testJWTSecret = "handler-test-secret"

// ------------------------------------------------------------------
// HTTP helpers
// ------------------------------------------------------------------

func doRequest(router *gin.Engine, method, path, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, cookie := range cookies {
		req.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func authCookie(t *testing.T, tokenService *services.TokenService, userID int, username string) *http.Cookie {
	t.Helper()
	access, _, err := tokenService.GenerateTokens(userID, username)
	if err != nil {
		t.Fatalf("failed to generate test token: %v", err)
	}
	return &http.Cookie{Name: "access_token", Value: access}
}

func mustUnmarshal(t *testing.T, w *httptest.ResponseRecorder, dest interface{}) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), dest); err != nil {
		t.Fatalf("failed to decode response body %q: %v", w.Body.String(), err)
	}
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode response body %q: %v", w.Body.String(), err)
	}
	return body
}

// ------------------------------------------------------------------
// User repository mock
// ------------------------------------------------------------------

type mockUserRepo struct {
	mu     sync.Mutex
	nextID int
	users  map[int]*models.User
	tokens map[string]int
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{
		nextID: 1,
		users:  make(map[int]*models.User),
		tokens: make(map[string]int),
	}
}

func (m *mockUserRepo) addUser(t *testing.T, username, password string, isAdmin bool) *models.User {
	t.Helper()
	hash, err := utils.HashPassword(password)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	user := &models.User{
		ID:           m.nextID,
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: hash,
		IsAdmin:      isAdmin,
		CreatedAt:    time.Now(),
	}
	m.users[user.ID] = user
	m.nextID++
	return user
}

func (m *mockUserRepo) CreateUser(ctx context.Context, req *models.RegisterRequest) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == req.Username || u.Email == req.Email {
			return nil, fmt.Errorf("username or email already exists: %w", apperrors.ErrConflict)
		}
	}
	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	user := &models.User{ID: m.nextID, Username: req.Username, Email: req.Email, PasswordHash: hash}
	m.users[user.ID] = user
	m.nextID++
	return user, nil
}

func (m *mockUserRepo) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == username {
			copied := *u
			return &copied, nil
		}
	}
	return nil, fmt.Errorf("user %q: %w", username, apperrors.ErrNotFound)
}

func (m *mockUserRepo) GetUserByID(ctx context.Context, userID int) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return nil, fmt.Errorf("user %d: %w", userID, apperrors.ErrNotFound)
	}
	copied := *u
	return &copied, nil
}

func (m *mockUserRepo) GetAccountInfo(ctx context.Context, userID int) (*models.AccountInfo, error) {
	u, err := m.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &models.AccountInfo{
		Username:  u.Username,
		Email:     u.Email,
		IsAdmin:   u.IsAdmin,
		CreatedAt: u.CreatedAt,
	}, nil
}

func (m *mockUserRepo) ListUsers(ctx context.Context) ([]models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	users := make([]models.User, 0, len(m.users))
	for _, u := range m.users {
		users = append(users, *u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID > users[j].ID })
	return users, nil
}

func (m *mockUserRepo) SetAdmin(ctx context.Context, userID int, isAdmin bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return fmt.Errorf("user %d: %w", userID, apperrors.ErrNotFound)
	}
	u.IsAdmin = isAdmin
	return nil
}

func (m *mockUserRepo) UpdateUsername(ctx context.Context, userID int, username string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, u := range m.users {
		if id != userID && u.Username == username {
			return fmt.Errorf("username already taken: %w", apperrors.ErrConflict)
		}
	}
	m.users[userID].Username = username
	return nil
}

func (m *mockUserRepo) UpdateEmail(ctx context.Context, userID int, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, u := range m.users {
		if id != userID && u.Email == email {
			return fmt.Errorf("email already registered: %w", apperrors.ErrConflict)
		}
	}
	m.users[userID].Email = email
	return nil
}

func (m *mockUserRepo) UpdatePassword(ctx context.Context, userID int, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[userID].PasswordHash = passwordHash
	return nil
}

func (m *mockUserRepo) DeleteUserCascade(ctx context.Context, userID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[userID]; !ok {
		return fmt.Errorf("user %d: %w", userID, apperrors.ErrNotFound)
	}
	delete(m.users, userID)
	return nil
}

func (m *mockUserRepo) StoreRefreshToken(ctx context.Context, userID int, token string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[token] = userID
	return nil
}

func (m *mockUserRepo) GetRefreshToken(ctx context.Context, token string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	userID, ok := m.tokens[token]
	if !ok {
		return 0, fmt.Errorf("refresh token not found: %w", apperrors.ErrNotFound)
	}
	return userID, nil
}

func (m *mockUserRepo) RevokeToken(ctx context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tokens, token)
	return nil
}

// ------------------------------------------------------------------
// Challenge repository mock
// ------------------------------------------------------------------

type mockChallengeRepo struct {
	mu           sync.Mutex
	challenges   map[int]*models.Challenge
	adminAuthors map[int]bool
	solves       map[int]map[int]bool
	scoreboard   []models.ScoreboardEntry
	deleted      []int
}

func newMockChallengeRepo() *mockChallengeRepo {
	return &mockChallengeRepo{
		challenges:   make(map[int]*models.Challenge),
		adminAuthors: make(map[int]bool),
		solves:       make(map[int]map[int]bool),
	}
}

func (m *mockChallengeRepo) addChallenge(c models.Challenge, authorIsAdmin bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.challenges[c.ID] = &c
	m.adminAuthors[c.AuthorID] = authorIsAdmin
}

func (m *mockChallengeRepo) ListChallenges(ctx context.Context, filter models.ChallengeFilter) ([]models.ChallengeListItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var items []models.ChallengeListItem
	for _, c := range m.challenges {
		if filter.Category != "" && c.Category != filter.Category {
			continue
		}
		if filter.Source == models.SourceOfficial && !m.adminAuthors[c.AuthorID] {
			continue
		}
		if filter.Source == models.SourceCommunity && m.adminAuthors[c.AuthorID] {
			continue
		}
		if filter.Search != "" && !strings.Contains(c.Title, filter.Search) && !strings.Contains(c.Description, filter.Search) {
			continue
		}
		items = append(items, models.ChallengeListItem{
			ID: c.ID, Title: c.Title, Category: c.Category,
			Difficulty: c.Difficulty, Points: c.Points, CreatedAt: c.CreatedAt,
		})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID > items[j].ID })
	return items, nil
}

func (m *mockChallengeRepo) GetChallengeDetail(ctx context.Context, challengeID int) (*models.ChallengeDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.challenges[challengeID]
	if !ok {
		return nil, fmt.Errorf("challenge %d: %w", challengeID, apperrors.ErrNotFound)
	}
	return &models.ChallengeDetail{
		ID: c.ID, Title: c.Title, Description: c.Description,
		Category: c.Category, Difficulty: c.Difficulty, Points: c.Points,
	}, nil
}

func (m *mockChallengeRepo) GetChallenge(ctx context.Context, challengeID int) (*models.Challenge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.challenges[challengeID]
	if !ok {
		return nil, fmt.Errorf("challenge %d: %w", challengeID, apperrors.ErrNotFound)
	}
	copied := *c
	return &copied, nil
}

func (m *mockChallengeRepo) GetSolvedChallengeIDs(ctx context.Context, userID int) (map[int]bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	solved := make(map[int]bool)
	for id := range m.solves[userID] {
		solved[id] = true
	}
	return solved, nil
}

func (m *mockChallengeRepo) HasSolved(ctx context.Context, userID, challengeID int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.solves[userID][challengeID], nil
}

func (m *mockChallengeRepo) InsertSolve(ctx context.Context, userID, challengeID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.solves[userID][challengeID] {
		return fmt.Errorf("challenge already solved: %w", apperrors.ErrConflict)
	}
	if m.solves[userID] == nil {
		m.solves[userID] = make(map[int]bool)
	}
	m.solves[userID][challengeID] = true
	return nil
}

func (m *mockChallengeRepo) GetUserScore(ctx context.Context, userID int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	score := 0
	for id := range m.solves[userID] {
		if c, ok := m.challenges[id]; ok {
			score += c.Points
		}
	}
	return score, nil
}

func (m *mockChallengeRepo) Scoreboard(ctx context.Context) ([]models.ScoreboardEntry, error) {
	return m.scoreboard, nil
}

func (m *mockChallengeRepo) DeleteChallengeCascade(ctx context.Context, challengeID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.challenges[challengeID]; !ok {
		return fmt.Errorf("challenge %d: %w", challengeID, apperrors.ErrNotFound)
	}
	delete(m.challenges, challengeID)
	for _, userSolves := range m.solves {
		delete(userSolves, challengeID)
	}
	m.deleted = append(m.deleted, challengeID)
	return nil
}

// ------------------------------------------------------------------
// Submission repository mock
// ------------------------------------------------------------------

type mockSubmissionRepo struct {
	mu                sync.Mutex
	nextID            int
	submissions       map[int]*models.Submission
	createdChallenges []models.Challenge
}

func newMockSubmissionRepo() *mockSubmissionRepo {
	return &mockSubmissionRepo{nextID: 1, submissions: make(map[int]*models.Submission)}
}

func (m *mockSubmissionRepo) addSubmission(s models.Submission) *models.Submission {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.ID == 0 {
		s.ID = m.nextID
	}
	if s.ID >= m.nextID {
		m.nextID = s.ID + 1
	}
	m.submissions[s.ID] = &s
	return &s
}

func (m *mockSubmissionRepo) CreateSubmission(ctx context.Context, authorID int, req *models.SubmissionRequest) (*models.Submission, error) {
	return m.addSubmission(models.Submission{
		Title: req.Title, Description: req.Description, Category: req.Category,
		Difficulty: req.Difficulty, Flag: req.Flag, Points: req.Points,
		AuthorID: authorID, Status: models.StatusPending, CreatedAt: time.Now(),
	}), nil
}

func (m *mockSubmissionRepo) GetSubmissionByID(ctx context.Context, submissionID int) (*models.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.submissions[submissionID]
	if !ok {
		return nil, fmt.Errorf("submission %d: %w", submissionID, apperrors.ErrNotFound)
	}
	copied := *s
	return &copied, nil
}

func (m *mockSubmissionRepo) ListByAuthor(ctx context.Context, authorID int) ([]models.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Submission
	for _, s := range m.submissions {
		if s.AuthorID == authorID {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *mockSubmissionRepo) ListByStatus(ctx context.Context, status string) ([]models.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Submission
	for _, s := range m.submissions {
		if s.Status == status {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *mockSubmissionRepo) ApproveSubmission(ctx context.Context, submissionID int) (*models.Challenge, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.submissions[submissionID]
	if !ok {
		return nil, false, fmt.Errorf("submission %d: %w", submissionID, apperrors.ErrNotFound)
	}
	switch s.Status {
	case models.StatusApproved:
		return nil, true, nil
	case models.StatusRejected:
		return nil, false, fmt.Errorf("submission is already rejected: %w", apperrors.ErrConflict)
	}
	s.Status = models.StatusApproved
	challenge := models.Challenge{
		ID: len(m.createdChallenges) + 1, Title: s.Title, Description: s.Description,
		Category: s.Category, Difficulty: s.Difficulty, Flag: s.Flag,
		Points: s.Points, AuthorID: s.AuthorID,
	}
	m.createdChallenges = append(m.createdChallenges, challenge)
	return &challenge, false, nil
}

func (m *mockSubmissionRepo) RejectSubmission(ctx context.Context, submissionID int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.submissions[submissionID]
	if !ok {
		return false, fmt.Errorf("submission %d: %w", submissionID, apperrors.ErrNotFound)
	}
	switch s.Status {
	case models.StatusRejected:
		return true, nil
	case models.StatusApproved:
		return false, fmt.Errorf("submission is already approved: %w", apperrors.ErrConflict)
	}
	s.Status = models.StatusRejected
	return false, nil
}

// ------------------------------------------------------------------
// Community repository mock
// ------------------------------------------------------------------

type mockCommunityRepo struct {
	mu       sync.Mutex
	nextID   int
	posts    map[int]*models.Post
	comments map[int][]models.Comment
}

func newMockCommunityRepo() *mockCommunityRepo {
	return &mockCommunityRepo{nextID: 1, posts: make(map[int]*models.Post), comments: make(map[int][]models.Comment)}
}

func (m *mockCommunityRepo) addPost(p models.Post) *models.Post {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID == 0 {
		p.ID = m.nextID
	}
	if p.ID >= m.nextID {
		m.nextID = p.ID + 1
	}
	m.posts[p.ID] = &p
	return &p
}

func (m *mockCommunityRepo) ListPosts(ctx context.Context) ([]models.PostListItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var items []models.PostListItem
	for _, p := range m.posts {
		items = append(items, models.PostListItem{
			ID: p.ID, Title: p.Title, AuthorName: p.AuthorName,
			Upvotes: p.Upvotes, CommentCount: len(m.comments[p.ID]), CreatedAt: p.CreatedAt,
		})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID > items[j].ID })
	return items, nil
}

func (m *mockCommunityRepo) CreatePost(ctx context.Context, authorID int, req *models.PostRequest) (*models.Post, error) {
	return m.addPost(models.Post{Title: req.Title, Content: req.Content, AuthorID: authorID, CreatedAt: time.Now()}), nil
}

func (m *mockCommunityRepo) GetPost(ctx context.Context, postID int) (*models.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.posts[postID]
	if !ok {
		return nil, fmt.Errorf("post %d: %w", postID, apperrors.ErrNotFound)
	}
	copied := *p
	return &copied, nil
}

func (m *mockCommunityRepo) ListComments(ctx context.Context, postID int) ([]models.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.Comment(nil), m.comments[postID]...), nil
}

func (m *mockCommunityRepo) AddComment(ctx context.Context, authorID, postID int, content string) (*models.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	comment := models.Comment{
		ID: len(m.comments[postID]) + 1, Content: content,
		AuthorID: authorID, PostID: postID, CreatedAt: time.Now(),
	}
	m.comments[postID] = append(m.comments[postID], comment)
	return &comment, nil
}

func (m *mockCommunityRepo) UpvotePost(ctx context.Context, postID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.posts[postID]
	if !ok {
		return fmt.Errorf("post %d: %w", postID, apperrors.ErrNotFound)
	}
	p.Upvotes++
	return nil
}

func (m *mockCommunityRepo) UpdatePost(ctx context.Context, postID int, title, content string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.posts[postID]
	if !ok {
		return fmt.Errorf("post %d: %w", postID, apperrors.ErrNotFound)
	}
	p.Title = title
	p.Content = content
	return nil
}

func (m *mockCommunityRepo) DeletePostCascade(ctx context.Context, postID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.posts[postID]; !ok {
		return fmt.Errorf("post %d: %w", postID, apperrors.ErrNotFound)
	}
	delete(m.posts, postID)
	delete(m.comments, postID)
	return nil
}

// ------------------------------------------------------------------
// Stats repository mock
// ------------------------------------------------------------------

type mockStatsRepo struct {
	stats models.AdminStats
}

func (m *mockStatsRepo) GetAdminStats(ctx context.Context) (*models.AdminStats, error) {
	copied := m.stats
	return &copied, nil
}

// ------------------------------------------------------------------
// Cache and solve feed fakes
// ------------------------------------------------------------------

type fakeCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: make(map[string][]byte)}
}

func (f *fakeCache) Get(ctx context.Context, key string, dest interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	raw, ok := f.data[key]
	if !ok {
		return services.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (f *fakeCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[key] = raw
	return nil
}

func (f *fakeCache) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.data, key)
	return nil
}

type fakeSolveFeed struct {
	mu      sync.Mutex
	entries []models.SolveFeedEntry
}

func (f *fakeSolveFeed) Publish(ctx context.Context, entry models.SolveFeedEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeSolveFeed) Recent(ctx context.Context, count int64) ([]models.SolveFeedEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.SolveFeedEntry, 0, len(f.entries))
	for i := len(f.entries) - 1; i >= 0 && int64(len(out)) < count; i-- {
		out = append(out, f.entries[i])
	}
	return out, nil
}
