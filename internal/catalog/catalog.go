// Package catalog holds the typed message template catalog. Every
// (category, key) entry must define every supported locale; Validate runs
// at startup so a missing locale or malformed template fails fast instead
// of at send time.
package catalog

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/bidmarket/notifier/internal/domain"
)

// MessageKey identifies one message kind within a category.
type MessageKey string

const (
	KeyOrderShipped   MessageKey = "order_shipped"
	KeyOrderDelivered MessageKey = "order_delivered"
	KeyAuctionWon     MessageKey = "auction_won"
	KeyAuctionOutbid  MessageKey = "auction_outbid"
	KeyChatMessage    MessageKey = "chat_message"
)

// Template is one localized subject/body pair. Subject and Body use
// text/template syntax and render against a composer-provided data map.
type Template struct {
	Subject string
	Body    string
}

// Catalog maps category -> key -> locale -> template.
type Catalog map[string]map[MessageKey]map[domain.Locale]Template

var supportedLocales = []domain.Locale{domain.LocaleEN, domain.LocaleKO}

// Validate checks that every entry defines every supported locale and that
// every template parses.
func (c Catalog) Validate() error {
	for category, keys := range c {
		for key, locales := range keys {
			for _, locale := range supportedLocales {
				tmpl, ok := locales[locale]
				if !ok {
					return fmt.Errorf("catalog entry %s/%s missing locale %q", category, key, locale)
				}
				if _, err := template.New("subject").Parse(tmpl.Subject); err != nil {
					return fmt.Errorf("catalog entry %s/%s/%s subject: %w", category, key, locale, err)
				}
				if _, err := template.New("body").Parse(tmpl.Body); err != nil {
					return fmt.Errorf("catalog entry %s/%s/%s body: %w", category, key, locale, err)
				}
			}
		}
	}
	return nil
}

// Resolve returns the template for a (category, key, locale) triple.
func (c Catalog) Resolve(category string, key MessageKey, locale domain.Locale) (Template, error) {
	keys, ok := c[category]
	if !ok {
		return Template{}, fmt.Errorf("catalog has no category %q", category)
	}
	locales, ok := keys[key]
	if !ok {
		return Template{}, fmt.Errorf("catalog category %q has no key %q", category, key)
	}
	tmpl, ok := locales[locale]
	if !ok {
		return Template{}, fmt.Errorf("catalog entry %s/%s has no locale %q", category, key, locale)
	}
	return tmpl, nil
}

// Render resolves and executes the template against data.
func (c Catalog) Render(category string, key MessageKey, locale domain.Locale, data any) (subject, body string, err error) {
	tmpl, err := c.Resolve(category, key, locale)
	if err != nil {
		return "", "", err
	}
	subject, err = render("subject", tmpl.Subject, data)
	if err != nil {
		return "", "", fmt.Errorf("rendering %s/%s/%s subject: %w", category, key, locale, err)
	}
	body, err = render("body", tmpl.Body, data)
	if err != nil {
		return "", "", fmt.Errorf("rendering %s/%s/%s body: %w", category, key, locale, err)
	}
	return subject, body, nil
}

func render(name, text string, data any) (string, error) {
	tmpl, err := template.New(name).Parse(text)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	if err := tmpl.Execute(&sb, data); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// Default returns the built-in catalog.
func Default() Catalog {
	return Catalog{
		"order": {
			KeyOrderShipped: {
				domain.LocaleEN: {
					Subject: "Your order {{.OrderID}} has shipped",
					Body:    "Order {{.OrderID}} is on its way.",
				},
				domain.LocaleKO: {
					Subject: "주문 {{.OrderID}} 배송이 시작되었습니다",
					Body:    "주문 {{.OrderID}} 상품이 발송되었습니다.",
				},
			},
			KeyOrderDelivered: {
				domain.LocaleEN: {
					Subject: "Order {{.OrderID}} delivered",
					Body:    "Your order {{.OrderID}} has been delivered.",
				},
				domain.LocaleKO: {
					Subject: "주문 {{.OrderID}} 배송 완료",
					Body:    "주문 {{.OrderID}} 상품이 배송 완료되었습니다.",
				},
			},
		},
		"auction": {
			KeyAuctionWon: {
				domain.LocaleEN: {
					Subject: "You won the auction for {{.ItemName}}",
					Body:    "Congratulations! Your bid of {{.Amount}} won {{.ItemName}}.",
				},
				domain.LocaleKO: {
					Subject: "{{.ItemName}} 경매에 낙찰되었습니다",
					Body:    "축하합니다! {{.Amount}} 입찰로 {{.ItemName}} 경매에 낙찰되었습니다.",
				},
			},
			KeyAuctionOutbid: {
				domain.LocaleEN: {
					Subject: "You have been outbid on {{.ItemName}}",
					Body:    "A higher bid of {{.Amount}} was placed on {{.ItemName}}.",
				},
				domain.LocaleKO: {
					Subject: "{{.ItemName}} 경매에서 상위 입찰이 발생했습니다",
					Body:    "{{.ItemName}} 경매에 {{.Amount}} 상위 입찰이 등록되었습니다.",
				},
			},
		},
		domain.CategoryChat: {
			KeyChatMessage: {
				domain.LocaleEN: {
					Subject: "New message from {{.SenderName}}",
					Body:    "{{.Preview}}",
				},
				domain.LocaleKO: {
					Subject: "{{.SenderName}}님의 새 메시지",
					Body:    "{{.Preview}}",
				},
			},
		},
	}
}
