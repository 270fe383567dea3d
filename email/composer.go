package email

import (
	"fmt"

	"github.com/matcornic/hermes/v2"
	"github.com/pkg/errors"

	"github.com/quantonganh/newsletter"
)

const buttonColor = "#22BC66"

type composer struct {
	// copied before every render, GenerateHTML fills in defaults on its receiver
	h       hermes.Hermes
	name    string
	contact string
}

// NewComposer returns a composer that renders emails branded with the configured product
func NewComposer(config *newsletter.Config) newsletter.Composer {
	return &composer{
		h: hermes.Hermes{
			Product: hermes.Product{
				Name: config.Newsletter.Product.Name,
				Link: config.Newsletter.Product.Link,
			},
		},
		name:    config.Newsletter.Product.Name,
		contact: config.Newsletter.Contact,
	}
}

// ConfirmationEmail renders the double opt-in email
func (c *composer) ConfirmationEmail(confirmURL string) (*newsletter.Message, error) {
	email := hermes.Email{
		Body: hermes.Body{
			Intros: []string{
				fmt.Sprintf("Thank you for subscribing to updates from %s.", c.name),
			},
			Actions: []hermes.Action{
				{
					Instructions: "Please confirm your subscription by clicking the button below:",
					Button: hermes.Button{
						Color: buttonColor,
						Text:  "Confirm Subscription",
						Link:  confirmURL,
					},
				},
			},
			Outros: c.outros(
				fmt.Sprintf("You will only ever receive updates about new posts on %s. You can unsubscribe at any time, and your data will never be shared with others.", c.name),
			),
		},
	}

	h := c.h
	body, err := h.GenerateHTML(email)
	if err != nil {
		return nil, errors.Errorf("failed to generate HTML email: %v", err)
	}

	return &newsletter.Message{
		Subject:  fmt.Sprintf("Confirm your subscription to %s", c.name),
		HTMLBody: body,
	}, nil
}

// DigestEmail renders the announcement of post for one subscriber
func (c *composer) DigestEmail(post *newsletter.Post, postURL, unsubscribeURL string) (*newsletter.Message, error) {
	email := hermes.Email{
		Body: hermes.Body{
			Intros: []string{
				fmt.Sprintf("A new post was published on %s: %s", c.name, post.Title),
			},
			Actions: []hermes.Action{
				{
					Button: hermes.Button{
						Color: buttonColor,
						Text:  post.Title,
						Link:  postURL,
					},
				},
				{
					Instructions: fmt.Sprintf("You are receiving this email because you subscribed to updates on %s. We will never send unrelated content or share your information. You can unsubscribe at any time, which will also delete all of your data:", c.name),
					Button: hermes.Button{
						Color: "#DC4D2F",
						Text:  "Unsubscribe",
						Link:  unsubscribeURL,
					},
				},
			},
			Outros: c.outros(),
		},
	}

	h := c.h
	body, err := h.GenerateHTML(email)
	if err != nil {
		return nil, errors.Errorf("failed to generate HTML email: %v", err)
	}

	return &newsletter.Message{
		Subject:  fmt.Sprintf("New post on %s: %s", c.name, post.Title),
		HTMLBody: body,
	}, nil
}

func (c *composer) outros(lines ...string) []string {
	if c.contact != "" {
		lines = append(lines, fmt.Sprintf("Questions? Contact us at %s.", c.contact))
	}
	return lines
}
