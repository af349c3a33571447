package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/wonkchat/wonk/internal/gateway"
)

func (c *Controller) do(ctx context.Context, method, path string, body, out any) error {
	var buf *bytes.Buffer
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		buf = bytes.NewBuffer(data)
	} else {
		buf = &bytes.Buffer{}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, buf)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Message string `json:"message"`
			Code    int    `json:"code"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Code != 0 {
			return &gateway.Error{Code: apiErr.Code, Message: apiErr.Message}
		}
		return fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Controller) get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

// Login creates a guest session; the session cookie lands in the
// controller's cookie jar and authenticates both HTTP calls and the
// push connection.
func (c *Controller) Login(ctx context.Context, username, password string) error {
	return c.do(ctx, http.MethodPost, "/auth", map[string]string{
		"username": username,
		"password": password,
	}, nil)
}

func (c *Controller) CreateRoom(ctx context.Context, name string) error {
	return c.do(ctx, http.MethodPost, "/api/rooms/"+name+"/create", nil, nil)
}

// JoinRoom joins and caches the room. If the room does not exist it is
// created first and the join retried.
func (c *Controller) JoinRoom(ctx context.Context, name string) (RoomSnapshot, error) {
	var res struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	err := c.do(ctx, http.MethodPost, "/api/rooms/"+name+"/join", nil, &res)
	if err != nil {
		var ge *gateway.Error
		if !errors.As(err, &ge) || ge.Code != gateway.ErrRoomNotFound.Code {
			return RoomSnapshot{}, err
		}
		if err := c.CreateRoom(ctx, name); err != nil {
			return RoomSnapshot{}, err
		}
		if err := c.do(ctx, http.MethodPost, "/api/rooms/"+name+"/join", nil, &res); err != nil {
			return RoomSnapshot{}, err
		}
	}

	members, err := c.fetchMembers(ctx, res.Name)
	if err != nil {
		return RoomSnapshot{}, err
	}
	snap := RoomSnapshot{Name: res.Name, Description: res.Description, Members: members}
	c.mu.Lock()
	c.rooms[res.Name] = snap
	c.mu.Unlock()
	return snap, nil
}

func (c *Controller) LeaveRoom(ctx context.Context, name string) error {
	if err := c.do(ctx, http.MethodPost, "/api/rooms/"+name+"/leave", nil, nil); err != nil {
		return err
	}
	c.mu.Lock()
	delete(c.rooms, name)
	c.mu.Unlock()
	return nil
}

// SendMessage submits a message. Submission is locked whenever the
// push connection is not open.
func (c *Controller) SendMessage(ctx context.Context, room, content string, attachments []string) error {
	c.mu.Lock()
	locked := !c.canSend
	c.mu.Unlock()
	if locked {
		return ErrChatLocked
	}
	if attachments == nil {
		attachments = []string{}
	}
	return c.do(ctx, http.MethodPost, "/api/rooms/"+room+"/message", map[string]any{
		"content":     content,
		"attachments": attachments,
	}, nil)
}

func (c *Controller) SetTyping(ctx context.Context, room string, typing bool) error {
	return c.do(ctx, http.MethodPost, "/api/rooms/"+room+"/typing", map[string]bool{
		"typing": typing,
	}, nil)
}
