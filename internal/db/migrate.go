/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package db

import (
	"fmt"

	"github.com/marioarbosiberica-bot/LaicaFM/internal/models"
	"gorm.io/gorm"
)

// Migrate applies database schema migrations using GORM auto-migrate.
func Migrate(database *gorm.DB) error {
	if err := database.AutoMigrate(
		&models.Song{},
		&models.Playlist{},
		&models.PlaylistSong{},
		&models.ChatMessage{},
		&models.RadioStats{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

// Reset drops all application tables. Used by the reset CLI command.
func Reset(database *gorm.DB) error {
	if err := database.Migrator().DropTable(
		&models.RadioStats{},
		&models.ChatMessage{},
		&models.PlaylistSong{},
		&models.Playlist{},
		&models.Song{},
	); err != nil {
		return fmt.Errorf("drop tables: %w", err)
	}
	return nil
}
