package http

import (
	"encoding/json"
	"fmt"
	"mime"
	"net/http"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/hlog"

	"github.com/quantonganh/newsletter"
	"github.com/quantonganh/newsletter/subscription"
)

const (
	confirmationMessage = "Thanks for signing up! A confirmation email has been sent to %s. Click the link in the email to confirm your subscription. Check your spam folder if you don't see it within a couple of minutes."
	thankyouMessage     = "Your subscription has been confirmed. From now on, you'll receive updates about new posts. You can unsubscribe at any time, and all your data will be deleted if you do."
)

func (s *Server) subscriptionsHandler(w http.ResponseWriter, r *http.Request) error {
	email, err := emailFromRequest(r)
	if err != nil {
		return err
	}

	logger := hlog.FromRequest(r)
	logger.Info().Msg("Subscribing")
	if _, err := s.SubscriptionService.Subscribe(r.Context(), email); err != nil {
		return err
	}

	// Subscribe succeeded, so the address normalizes
	normalized, _ := subscription.NormalizeEmail(email)
	writeJSONResponse(w, http.StatusOK, &newsletter.SubscriptionResponse{
		Message: fmt.Sprintf(confirmationMessage, normalized),
	})

	return nil
}

func emailFromRequest(r *http.Request) (string, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		var req newsletter.SubscriptionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return "", NewError(err, http.StatusBadRequest, "Invalid request body.")
		}
		return req.Email, nil
	}

	if err := r.ParseForm(); err != nil {
		return "", NewError(err, http.StatusBadRequest, "Invalid request body.")
	}
	return r.PostFormValue("email"), nil
}

// confirmHandler answers with the same message whether or not the token was known
func (s *Server) confirmHandler(w http.ResponseWriter, r *http.Request) error {
	token := r.URL.Query().Get("token")
	if len(token) == 0 {
		return NewError(errors.New("token is not present"), http.StatusBadRequest, "Token is required.")
	}

	confirmed, err := s.SubscriptionService.Confirm(r.Context(), token)
	if err != nil {
		return err
	}
	hlog.FromRequest(r).Info().Bool("confirmed", confirmed).Msg("Confirmation handled")

	writeJSONResponse(w, http.StatusOK, &newsletter.SubscriptionResponse{
		Message: thankyouMessage,
	})

	return nil
}

func writeJSONResponse(w http.ResponseWriter, statusCode int, response interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)
	//nolint:errcheck
	json.NewEncoder(w).Encode(response)
}
