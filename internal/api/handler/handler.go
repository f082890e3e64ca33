package handler

import (
	"echospace/backend/internal/lobbyhub"
	"echospace/backend/internal/storage"
)

// Handler carries the hub and storage references for the HTTP edge.
type Handler struct {
	Hub     *lobbyhub.ManagerService
	Storage storage.Storage
}

func NewHandler(hub *lobbyhub.ManagerService, s storage.Storage) *Handler {
	return &Handler{Hub: hub, Storage: s}
}
