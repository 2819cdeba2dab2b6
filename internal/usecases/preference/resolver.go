// Package preference computes per-channel send eligibility from category
// defaults/overrides and a user's stored choice. It is pure: no I/O, no
// errors.
package preference

import "github.com/bidmarket/notifier/internal/domain"

// Resolve returns the effective per-channel eligibility for one user.
//
// No category means the dispatch is uncategorized and every channel is
// allowed. A category without a stored user choice yields the category
// defaults. Otherwise, per channel: a force-default flag or an unset user
// choice falls back to the default; an explicit user choice wins.
func Resolve(category *domain.Category, choice *domain.UserChoice) domain.ChannelSet {
	if category == nil {
		return domain.ChannelSet{Email: true, Push: true, SMS: true}
	}
	if choice == nil {
		return category.Defaults
	}
	return domain.ChannelSet{
		Email: resolveChannel(category.Defaults.Email, category.ForceDefault.Email, choice.Email),
		Push:  resolveChannel(category.Defaults.Push, category.ForceDefault.Push, choice.Push),
		SMS:   resolveChannel(category.Defaults.SMS, category.ForceDefault.SMS, choice.SMS),
	}
}

func resolveChannel(def, forced bool, choice *bool) bool {
	if forced || choice == nil {
		return def
	}
	return *choice
}
