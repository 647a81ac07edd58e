package service

import "github.com/jafarshop/orderhook/internal/domain"

// IngestResult is the outcome of a committed webhook order
type IngestResult struct {
	Order         *domain.Order
	Client        *domain.Client
	ClientCreated bool
	Notified      bool
}
