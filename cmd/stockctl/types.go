package main

import "time"

// API response shapes, mirroring the server's JSON.

type itemView struct {
	ID        string    `json:"id"`
	Label     string    `json:"label"`
	Code      string    `json:"code"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type eventView struct {
	ID         string    `json:"id"`
	ItemID     string    `json:"itemId"`
	FromStatus string    `json:"fromStatus"`
	ToStatus   string    `json:"toStatus"`
	ActorID    string    `json:"actorId"`
	Action     string    `json:"action"`
	CreatedAt  time.Time `json:"createdAt"`
}

type itemListResponse struct {
	Items         []itemView `json:"items"`
	NextPageToken string     `json:"nextPageToken"`
	TotalSize     int        `json:"totalSize"`
}

type transitionResponse struct {
	Item  itemView  `json:"item"`
	Event eventView `json:"event"`
}

type historyResponse struct {
	Item          itemView    `json:"item"`
	Events        []eventView `json:"events"`
	NextPageToken string      `json:"nextPageToken"`
	TotalSize     int         `json:"totalSize"`
}

type allowedTransitionsResponse struct {
	Item               itemView `json:"item"`
	Role               string   `json:"role"`
	AllowedTransitions []string `json:"allowedTransitions"`
}

type statsResponse struct {
	TotalItems int64            `json:"totalItems"`
	ByStatus   map[string]int64 `json:"byStatus"`
}

type userView struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"createdAt"`
}

type userListResponse struct {
	Users         []userView `json:"users"`
	NextPageToken string     `json:"nextPageToken"`
	TotalSize     int        `json:"totalSize"`
}

type tokenPairResponse struct {
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken"`
	ExpiresAt    string    `json:"expiresAt"`
	User         *userView `json:"user"`
}
