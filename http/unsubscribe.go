package http

import (
	"net/http"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/hlog"

	"github.com/quantonganh/newsletter"
)

const (
	unsubscribeConfirmMessage = "You are about to unsubscribe. If you confirm, all of your data will be permanently deleted and you will no longer receive any emails from us. Send a POST request to this address to confirm."
	unsubscribeMessage        = "You have been unsubscribed, and all of your data has been permanently deleted from our system."
)

// unsubscribePageHandler is the first, side-effect free step. Link prefetchers in mail clients only issue GETs.
func (s *Server) unsubscribePageHandler(w http.ResponseWriter, r *http.Request) error {
	if r.URL.Query().Get("token") == "" {
		return NewError(errors.New("token is not present"), http.StatusBadRequest, "Token is required.")
	}

	writeJSONResponse(w, http.StatusOK, &newsletter.SubscriptionResponse{
		Message: unsubscribeConfirmMessage,
	})

	return nil
}

func (s *Server) unsubscribeHandler(w http.ResponseWriter, r *http.Request) error {
	token := r.URL.Query().Get("token")
	if token == "" {
		return NewError(errors.New("token is not present"), http.StatusBadRequest, "Token is required.")
	}

	deleted, err := s.SubscriptionService.Unsubscribe(r.Context(), token)
	if err != nil {
		return err
	}
	hlog.FromRequest(r).Info().Bool("deleted", deleted).Msg("Unsubscribe handled")

	writeJSONResponse(w, http.StatusOK, &newsletter.SubscriptionResponse{
		Message: unsubscribeMessage,
	})

	return nil
}
