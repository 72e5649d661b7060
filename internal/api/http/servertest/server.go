// Package servertest runs the full API over the in-memory repositories on
// a loopback port.
package servertest

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	apihttp "github.com/spec-kit/helpdesk/internal/api/http"
	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/repository/repotest"
	"github.com/spec-kit/helpdesk/internal/service"
)

// Password is the password of every seeded user.
const Password = "correct horse"

// Server is a running API.
type Server struct {
	URL    string
	Store  *repotest.Store
	tokens *auth.TokenManager
}

// Start seeds ticket 42 (customer 5, status Open/1, priority Medium/2,
// branch 1, no agents), agents 7 and 8, admin 1, label 11 and products
// 100 and 101, then serves the API until the test ends.
func Start(t *testing.T) *Server {
	t.Helper()
	store := Seed(t)
	tokens := auth.NewTokenManager("servertest-secret", 15)
	services := service.New(store.Repositories(), events.NewInMemoryDispatcher(nil), tokens, nil, nil)
	app := apihttp.NewApp(apihttp.ServerConfig{Name: "helpdesk-test", Version: "test", Users: store.Users()}, services)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = app.Listener(ln) }()
	t.Cleanup(func() { _ = app.Shutdown() })

	return &Server{URL: "http://" + ln.Addr().String(), Store: store, tokens: tokens}
}

// Seed builds the in-memory store Start serves.
func Seed(t *testing.T) *repotest.Store {
	t.Helper()
	hash, err := auth.HashPassword(Password, bcrypt.MinCost)
	require.NoError(t, err)

	store := repotest.New()
	store.SetCatalog(domain.Catalog{
		Statuses: []domain.Status{
			{ID: 1, Name: "Open"},
			{ID: 2, Name: "In Progress"},
			{ID: 3, Name: "Closed", IsClosed: true},
			{ID: 4, Name: "Completed", IsClosed: true},
		},
		Priorities: []domain.Priority{{ID: 1, Name: "Low"}, {ID: 2, Name: "Medium"}, {ID: 3, Name: "High"}},
		Branches:   []domain.Branch{{ID: 1, Name: "Downtown"}, {ID: 2, Name: "Airport"}},
	})
	store.PutCustomer(domain.Customer{ID: 5, Name: "Ada", Phone: "+100"})
	store.PutTicket(domain.Ticket{ID: 42, CustomerID: 5, Issue: "Printer jam", StatusID: 1, PriorityID: 2, BranchID: 1})
	store.PutUser(domain.User{ID: 1, Name: "Admin", Email: "admin@example.com", PasswordHash: hash, Role: domain.UserRoleAdmin, Active: true})
	store.PutUser(domain.User{ID: 7, Name: "Agent Seven", Email: "seven@example.com", PasswordHash: hash, Role: domain.UserRoleAgent, Active: true})
	store.PutUser(domain.User{ID: 8, Name: "Agent Eight", Email: "eight@example.com", PasswordHash: hash, Role: domain.UserRoleAgent, Active: true})
	store.PutLabel(domain.RelatedMember{ID: 11, Name: "urgent", Color: "#ff0000"})
	store.PutProduct(domain.Product{ID: 100, Name: "Toner", Price: 2500})
	store.PutProduct(domain.Product{ID: 101, Name: "Roller", Price: 1200})
	return store
}

// Token issues an access token for a seeded user.
func (s *Server) Token(t *testing.T, userID int64) string {
	t.Helper()
	user, err := s.Store.Users().GetByID(context.Background(), userID)
	require.NoError(t, err)
	token, _, err := s.tokens.GenerateToken(user)
	require.NoError(t, err)
	return token
}
