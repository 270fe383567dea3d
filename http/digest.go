package http

import (
	"net/http"

	"github.com/quantonganh/newsletter"
)

const (
	unauthorizedMessage   = "unauthorized"
	feedLoadFailedMessage = "Failed to load feed."
	noNewPostsMessage     = "No new posts."
	digestSentMessage     = "Digest sent."
)

func (s *Server) sendDigestHandler(w http.ResponseWriter, r *http.Request) error {
	key := r.URL.Query().Get("key")
	if key == "" {
		key = r.Header.Get("X-Digest-Key")
	}

	result, err := s.DigestService.SendDigest(r.Context(), s.FeedURL, s.KeyHash, key)
	if err != nil {
		return err
	}

	resp := &newsletter.DigestResponse{Message: noNewPostsMessage}
	if result.Status == newsletter.DigestSent {
		resp.Message = digestSentMessage
		resp.SentCount = result.SentCount
	}

	writeJSONResponse(w, http.StatusOK, resp)

	return nil
}
