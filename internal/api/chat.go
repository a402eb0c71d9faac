/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/marioarbosiberica-bot/LaicaFM/internal/chat"
)

func (a *API) handleRecentMessages(w http.ResponseWriter, r *http.Request) {
	messages, err := a.chat.Recent(r.Context(), chat.DefaultHistoryLimit)
	if err != nil {
		a.logger.Error().Err(err).Msg("chat history failed")
		writeError(w, http.StatusInternalServerError, "history_failed")
		return
	}

	out := make([]chat.MessageView, 0, len(messages))
	for _, msg := range messages {
		out = append(out, chat.View(msg))
	}
	writeJSON(w, http.StatusOK, out)
}

type postMessageRequest struct {
	Username string `json:"username"`
	Message  string `json:"message"`
}

func (a *API) handlePostMessage(w http.ResponseWriter, r *http.Request) {
	var req postMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}

	msg, err := a.chat.Post(r.Context(), req.Username, req.Message)
	if err != nil {
		if errors.Is(err, chat.ErrEmptyMessage) {
			writeError(w, http.StatusBadRequest, "message_required")
			return
		}
		a.logger.Error().Err(err).Msg("chat post failed")
		writeError(w, http.StatusInternalServerError, "post_failed")
		return
	}

	writeJSON(w, http.StatusCreated, chat.View(*msg))
}
