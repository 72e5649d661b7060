package apiclient

import (
	"context"
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/api/dto"
)

func ticketPath(ticketID int64, rest ...string) string {
	p := fmt.Sprintf("/api/tickets/%d", ticketID)
	for _, r := range rest {
		p += "/" + r
	}
	return p
}

// Login exchanges credentials for an access token.
func (c *Client) Login(ctx context.Context, email, password string) (*dto.LoginResponse, error) {
	var out dto.LoginResponse
	if err := c.do(ctx, fiber.MethodPost, "/auth/login", dto.LoginRequest{Email: email, Password: password}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetTicket fetches the full ticket view including member lists.
func (c *Client) GetTicket(ctx context.Context, ticketID int64) (*dto.TicketResponse, error) {
	var out dto.TicketResponse
	if err := c.do(ctx, fiber.MethodGet, ticketPath(ticketID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateTicket sends PATCH, or PUT when full is set, and returns the stored ticket.
func (c *Client) UpdateTicket(ctx context.Context, ticketID int64, req dto.UpdateTicketRequest, full bool) (*dto.TicketResponse, error) {
	method := fiber.MethodPatch
	if full {
		method = fiber.MethodPut
	}
	var out dto.TicketResponse
	if err := c.do(ctx, method, ticketPath(ticketID), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AttachMember adds memberID to the relation and returns the resulting member list.
func (c *Client) AttachMember(ctx context.Context, rel dto.Relation, ticketID, memberID int64) ([]dto.MemberRef, error) {
	var out []dto.MemberRef
	if err := c.do(ctx, fiber.MethodPost, ticketPath(ticketID, string(rel), fmt.Sprint(memberID)), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DetachMember removes memberID from the relation and returns the resulting member list.
func (c *Client) DetachMember(ctx context.Context, rel dto.Relation, ticketID, memberID int64) ([]dto.MemberRef, error) {
	var out []dto.MemberRef
	if err := c.do(ctx, fiber.MethodDelete, ticketPath(ticketID, string(rel), fmt.Sprint(memberID)), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// VerifyTicket stamps the ticket as verified with the given remarks.
func (c *Client) VerifyTicket(ctx context.Context, ticketID int64, req dto.VerifyTicketRequest) (*dto.TicketResponse, error) {
	var out dto.TicketResponse
	if err := c.do(ctx, fiber.MethodPost, ticketPath(ticketID, "verify"), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetCatalog fetches the status, priority and branch tables.
func (c *Client) GetCatalog(ctx context.Context) (*dto.CatalogResponse, error) {
	var out dto.CatalogResponse
	if err := c.do(ctx, fiber.MethodGet, "/api/catalog", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Notifications lists the caller's in-app notifications, newest first.
func (c *Client) Notifications(ctx context.Context, limit int) ([]dto.NotificationResponse, error) {
	var out []dto.NotificationResponse
	if err := c.do(ctx, fiber.MethodGet, fmt.Sprintf("/api/notifications?limit=%d", limit), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}
