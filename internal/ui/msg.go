package ui

import (
	"github.com/rovshanmuradov/pumpbot/internal/storage/models"
)

// LaunchesLoadedMsg carries a fresh snapshot of recent launches.
type LaunchesLoadedMsg struct {
	Launches []models.RecentLaunch
}

// StatsLoadedMsg carries registry aggregates.
type StatsLoadedMsg struct {
	Stats models.Stats
}

// NewLaunchMsg is sent for every launch pushed over the live channel.
type NewLaunchMsg struct {
	Launch models.RecentLaunch
}

// LiveStatusMsg reports live channel connectivity.
type LiveStatusMsg struct {
	Connected bool
	Err       error
}

// ErrorMsg reports a failed fetch.
type ErrorMsg struct {
	Err   error
	Title string
}
