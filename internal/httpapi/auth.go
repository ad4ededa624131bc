package httpapi

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/Bodin4747/CheikysAdmin/internal/domain"
	"github.com/Bodin4747/CheikysAdmin/internal/store"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInactiveAccount    = errors.New("account is inactive")
	ErrOwnerProtected     = errors.New("owner account cannot be modified")
	ErrUserExists         = errors.New("username already exists")
	ErrBootstrapClosed    = errors.New("bootstrap is only allowed before any user exists")
)

const userStoreTimeout = 3 * time.Second

type AuthManager struct {
	mu          sync.RWMutex
	bootstrapMu sync.Mutex
	secret    []byte
	tokenTTL  time.Duration
	userStore UserStore
	users     map[string]credential
}

type UserStore interface {
	CreateUser(ctx context.Context, user domain.UserAccount) error
	CreateFirstUser(ctx context.Context, user domain.UserAccount) error
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	UpdateUser(ctx context.Context, user domain.UserAccount) error
	UpdateUserPassword(ctx context.Context, username string, password string) error
	DeleteUser(ctx context.Context, username string) error
}

type credential struct {
	displayName string
	password    string
	role        string
	active      bool
	created     time.Time
}

type posCustomClaims struct {
	jwtlib.RegisteredClaims
	Role string `json:"role"`
}

func NewAuthManager(secret string, tokenTTL time.Duration, userStore UserStore) *AuthManager {
	if secret == "" {
		secret = "dev-change-me"
	}
	if tokenTTL <= 0 {
		tokenTTL = 8 * time.Hour
	}

	manager := &AuthManager{
		secret:    []byte(secret),
		tokenTTL:  tokenTTL,
		userStore: userStore,
		users:     make(map[string]credential),
	}
	ctx, cancel := context.WithTimeout(context.Background(), userStoreTimeout)
	defer cancel()
	manager.bootstrapUsers(ctx)
	return manager
}

func (a *AuthManager) Login(ctx context.Context, req domain.LoginRequest) (domain.LoginResponse, error) {
	// Reload so accounts edited from another instance take effect.
	loadCtx, cancel := context.WithTimeout(ctx, userStoreTimeout)
	a.bootstrapUsers(loadCtx)
	cancel()

	username := normalizeUsername(req.Username)
	cred, ok := a.lookup(username)
	if !ok {
		return domain.LoginResponse{}, ErrInvalidCredentials
	}
	if !verifyPassword(cred.password, req.Password) {
		return domain.LoginResponse{}, ErrInvalidCredentials
	}
	if !cred.active {
		return domain.LoginResponse{}, ErrInactiveAccount
	}

	expiresAt := time.Now().UTC().Add(a.tokenTTL)
	token, err := a.sign(username, cred.role, expiresAt)
	if err != nil {
		return domain.LoginResponse{}, err
	}

	return domain.LoginResponse{
		AccessToken: token,
		Role:        cred.role,
		DisplayName: cred.displayName,
		ExpiresAt:   expiresAt.Format(time.RFC3339),
	}, nil
}

func (a *AuthManager) ParseToken(tokenStr string) (domain.Actor, error) {
	claims := &posCustomClaims{}
	token, err := jwtlib.ParseWithClaims(tokenStr, claims, func(t *jwtlib.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return a.secret, nil
	}, jwtlib.WithValidMethods([]string{"HS256"}))
	if err != nil || !token.Valid {
		return domain.Actor{}, errors.New("invalid or expired token")
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return domain.Actor{}, errors.New("invalid token subject")
	}

	// A deactivated or deleted account loses access before its token expires.
	cred, ok := a.lookup(sub)
	if !ok && a.userStore != nil {
		// The account may have been created by another instance.
		ctx, cancel := context.WithTimeout(context.Background(), userStoreTimeout)
		a.bootstrapUsers(ctx)
		cancel()
		cred, ok = a.lookup(sub)
	}
	if ok && !cred.active {
		return domain.Actor{}, ErrInactiveAccount
	}
	if !ok && a.userStore != nil {
		return domain.Actor{}, errors.New("unknown account")
	}
	role := claims.Role
	if ok {
		role = cred.role
	}
	return domain.Actor{Username: sub, Role: role}, nil
}

func (a *AuthManager) sign(username, role string, expiresAt time.Time) (string, error) {
	claims := posCustomClaims{
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   username,
			IssuedAt:  jwtlib.NewNumericDate(time.Now().UTC()),
			ExpiresAt: jwtlib.NewNumericDate(expiresAt),
			Issuer:    "cheikys-admin",
		},
		Role: role,
	}
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

// BootstrapOwner creates the first owner account. It is refused once any
// account exists.
func (a *AuthManager) BootstrapOwner(ctx context.Context, req domain.UserCreateRequest) (domain.User, error) {
	a.bootstrapMu.Lock()
	defer a.bootstrapMu.Unlock()

	a.bootstrapUsers(ctx)
	a.mu.RLock()
	empty := len(a.users) == 0
	a.mu.RUnlock()
	if !empty {
		return domain.User{}, ErrBootstrapClosed
	}
	return a.createUser(ctx, req, domain.RoleOwner, true)
}

func (a *AuthManager) CreateUser(ctx context.Context, req domain.UserCreateRequest) (domain.User, error) {
	a.bootstrapUsers(ctx)
	role := strings.TrimSpace(req.Role)
	if role == "" {
		role = domain.RoleCashier
	}
	if !domain.IsKnownRole(role) {
		return domain.User{}, fmt.Errorf("%w: unknown role %q", store.ErrInvalidTransaction, role)
	}
	if role == domain.RoleOwner {
		return domain.User{}, fmt.Errorf("%w: owner role cannot be assigned", store.ErrInvalidTransaction)
	}
	return a.createUser(ctx, req, role, false)
}

// createUser validates and stores a new account. With first set, the store
// only accepts it while no account exists.
func (a *AuthManager) createUser(ctx context.Context, req domain.UserCreateRequest, role string, first bool) (domain.User, error) {
	username := normalizeUsername(req.Username)
	if len(username) < 4 {
		return domain.User{}, fmt.Errorf("%w: username must be at least 4 characters", store.ErrInvalidTransaction)
	}
	if strings.ContainsAny(username, " \t\r\n") {
		return domain.User{}, fmt.Errorf("%w: username must not contain spaces", store.ErrInvalidTransaction)
	}
	if err := validatePassword(req.Password); err != nil {
		return domain.User{}, err
	}

	if _, exists := a.lookup(username); exists {
		return domain.User{}, ErrUserExists
	}

	now := time.Now().UTC()
	passwordHash, err := hashPassword(req.Password)
	if err != nil {
		return domain.User{}, fmt.Errorf("failed to hash password")
	}
	displayName := strings.TrimSpace(req.DisplayName)
	if displayName == "" {
		displayName = username
	}

	if a.userStore != nil {
		account := domain.UserAccount{
			Username:    username,
			DisplayName: displayName,
			Password:    passwordHash,
			Role:        role,
			Active:      true,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		var err error
		if first {
			err = a.userStore.CreateFirstUser(ctx, account)
			if errors.Is(err, store.ErrConflict) {
				err = ErrBootstrapClosed
			}
		} else {
			err = a.userStore.CreateUser(ctx, account)
		}
		if err != nil {
			return domain.User{}, err
		}
	}

	cred := credential{
		displayName: displayName,
		password:    passwordHash,
		role:        role,
		active:      true,
		created:     now,
	}
	a.mu.Lock()
	if first && a.userStore == nil && len(a.users) > 0 {
		a.mu.Unlock()
		return domain.User{}, ErrBootstrapClosed
	}
	a.users[username] = cred
	a.mu.Unlock()

	return cred.user(username), nil
}

func (a *AuthManager) ListUsers(ctx context.Context) []domain.User {
	a.bootstrapUsers(ctx)
	a.mu.RLock()
	result := make([]domain.User, 0, len(a.users))
	for username, cred := range a.users {
		result = append(result, cred.user(username))
	}
	a.mu.RUnlock()
	sort.Slice(result, func(i, j int) bool {
		return result[i].Username < result[j].Username
	})
	return result
}

// UpdateUser applies a partial update. The owner account only accepts a new
// display name, or a new password set by the owner itself.
func (a *AuthManager) UpdateUser(ctx context.Context, actor domain.Actor, username string, req domain.UserUpdateRequest) (domain.User, error) {
	a.bootstrapUsers(ctx)
	username = normalizeUsername(username)
	cred, ok := a.lookup(username)
	if !ok {
		return domain.User{}, store.ErrNotFound
	}

	if cred.role == domain.RoleOwner && (req.Role != nil || req.Active != nil) {
		return domain.User{}, ErrOwnerProtected
	}
	if cred.role == domain.RoleOwner && req.Password != nil && actor.Username != username {
		return domain.User{}, ErrOwnerProtected
	}
	if req.DisplayName != nil {
		name := strings.TrimSpace(*req.DisplayName)
		if name == "" {
			return domain.User{}, fmt.Errorf("%w: display name is required", store.ErrInvalidTransaction)
		}
		cred.displayName = name
	}
	if req.Role != nil {
		role := strings.TrimSpace(*req.Role)
		if !domain.IsKnownRole(role) || role == domain.RoleOwner {
			return domain.User{}, fmt.Errorf("%w: role %q cannot be assigned", store.ErrInvalidTransaction, role)
		}
		cred.role = role
	}
	if req.Active != nil {
		cred.active = *req.Active
	}
	if req.Password != nil {
		if err := validatePassword(*req.Password); err != nil {
			return domain.User{}, err
		}
		hashed, err := hashPassword(*req.Password)
		if err != nil {
			return domain.User{}, fmt.Errorf("failed to hash password")
		}
		cred.password = hashed
	}

	if a.userStore != nil {
		err := a.userStore.UpdateUser(ctx, domain.UserAccount{
			Username:    username,
			DisplayName: cred.displayName,
			Role:        cred.role,
			Active:      cred.active,
		})
		if err != nil {
			return domain.User{}, err
		}
		if req.Password != nil {
			if err := a.userStore.UpdateUserPassword(ctx, username, cred.password); err != nil {
				return domain.User{}, err
			}
		}
	}

	a.mu.Lock()
	a.users[username] = cred
	a.mu.Unlock()
	return cred.user(username), nil
}

func (a *AuthManager) DeleteUser(ctx context.Context, actor domain.Actor, username string) error {
	a.bootstrapUsers(ctx)
	username = normalizeUsername(username)
	if username == actor.Username {
		return fmt.Errorf("%w: cannot delete your own account", store.ErrInvalidTransaction)
	}
	cred, ok := a.lookup(username)
	if !ok {
		return store.ErrNotFound
	}
	if cred.role == domain.RoleOwner {
		return ErrOwnerProtected
	}
	if a.userStore != nil {
		if err := a.userStore.DeleteUser(ctx, username); err != nil {
			return err
		}
	}
	a.mu.Lock()
	delete(a.users, username)
	a.mu.Unlock()
	return nil
}

// bootstrapUsers replaces the in-memory credential cache with the accounts in
// the user store and upgrades legacy plain-text passwords to bcrypt hashes.
// The cache is left untouched when the store cannot be read.
func (a *AuthManager) bootstrapUsers(ctx context.Context) {
	if a.userStore == nil {
		return
	}

	users, err := a.userStore.ListUsers(ctx)
	if err != nil {
		return
	}

	loaded := make(map[string]credential, len(users))
	for _, user := range users {
		username := normalizeUsername(user.Username)
		if username == "" {
			continue
		}
		password := user.Password
		if !isPasswordHash(password) {
			hashed, err := hashPassword(password)
			if err == nil {
				password = hashed
				_ = a.userStore.UpdateUserPassword(ctx, username, hashed)
			}
		}
		displayName := user.DisplayName
		if displayName == "" {
			displayName = username
		}
		loaded[username] = credential{
			displayName: displayName,
			password:    password,
			role:        user.Role,
			active:      user.Active,
			created:     user.CreatedAt,
		}
	}

	a.mu.Lock()
	a.users = loaded
	a.mu.Unlock()
}

func (a *AuthManager) lookup(username string) (credential, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	cred, ok := a.users[username]
	return cred, ok
}

func (c credential) user(username string) domain.User {
	return domain.User{
		Username:    username,
		DisplayName: c.displayName,
		Role:        c.role,
		Active:      c.active,
		CreatedAt:   c.created,
	}
}

func normalizeUsername(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

func validatePassword(password string) error {
	if strings.TrimSpace(password) == "" || len(password) < 6 {
		return fmt.Errorf("%w: password must be at least 6 characters", store.ErrInvalidTransaction)
	}
	return nil
}

func verifyPassword(stored string, input string) bool {
	if stored == "" || strings.TrimSpace(input) == "" || !isPasswordHash(stored) {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(stored), []byte(input)) == nil
}

func hashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

func isPasswordHash(value string) bool {
	return strings.HasPrefix(value, "$2a$") || strings.HasPrefix(value, "$2b$") || strings.HasPrefix(value, "$2y$")
}
