package models

import (
	"errors"
	"time"
)

type Status string

const (
	StatusActive   Status = "ACTIVE"
	StatusInactive Status = "INACTIVE"
)

// Prize is a redeemable reward. A nil StockQty means unlimited stock;
// otherwise redemption decrements it and it never goes below zero.
type Prize struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	ImageURL    *string   `json:"imageUrl"`
	CostPoints  int       `json:"costPoints"`
	StockQty    *int      `json:"stockQty"`
	Status      Status    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
}

type CreateInput struct {
	Name        string  `json:"name" binding:"required,max=200"`
	Description *string `json:"description"`
	ImageURL    *string `json:"imageUrl"`
	CostPoints  int     `json:"costPoints" binding:"required,min=1"`
	StockQty    *int    `json:"stockQty" binding:"omitempty,min=0"`
}

// UpdateInput carries a partial update; nil fields are left untouched.
type UpdateInput struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	ImageURL    *string `json:"imageUrl"`
	CostPoints  *int    `json:"costPoints"`
	StockQty    *int    `json:"stockQty"`
	ClearStock  bool    `json:"clearStock"`
	Status      *Status `json:"status"`
}

var (
	ErrPrizeNotFound      = errors.New("prize not found")
	ErrPrizeInactive      = errors.New("prize is not active")
	ErrInsufficientPoints = errors.New("insufficient active points")
	ErrOutOfStock         = errors.New("prize out of stock")
	ErrInvalidCost        = errors.New("cost must be at least 1 point")
)
