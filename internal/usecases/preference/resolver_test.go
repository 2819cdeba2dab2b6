package preference

import (
	"testing"

	"github.com/bidmarket/notifier/internal/domain"
	"github.com/stretchr/testify/assert"
)

func boolPtr(b bool) *bool { return &b }

func TestResolve(t *testing.T) {
	category := &domain.Category{
		ID:   1,
		Name: "order",
		Defaults: domain.ChannelSet{
			Email: true,
			Push:  true,
			SMS:   false,
		},
	}

	tests := []struct {
		name     string
		category *domain.Category
		choice   *domain.UserChoice
		expected domain.ChannelSet
	}{
		{
			name:     "No category allows every channel",
			category: nil,
			choice:   &domain.UserChoice{Push: boolPtr(false)},
			expected: domain.ChannelSet{Email: true, Push: true, SMS: true},
		},
		{
			name:     "No stored choice yields defaults exactly",
			category: category,
			choice:   nil,
			expected: category.Defaults,
		},
		{
			name:     "Explicit opt-out wins over default",
			category: category,
			choice:   &domain.UserChoice{Push: boolPtr(false)},
			expected: domain.ChannelSet{Email: true, Push: false, SMS: false},
		},
		{
			name:     "Explicit opt-in wins over default",
			category: category,
			choice:   &domain.UserChoice{SMS: boolPtr(true)},
			expected: domain.ChannelSet{Email: true, Push: true, SMS: true},
		},
		{
			name:     "Unset fields fall back to defaults",
			category: category,
			choice:   &domain.UserChoice{},
			expected: category.Defaults,
		},
		{
			name: "Force-default beats opt-out",
			category: &domain.Category{
				Name:         "ban",
				Defaults:     domain.ChannelSet{Push: true},
				ForceDefault: domain.ChannelSet{Push: true},
			},
			choice:   &domain.UserChoice{Push: boolPtr(false)},
			expected: domain.ChannelSet{Push: true},
		},
		{
			name: "Force-default beats opt-in when default is off",
			category: &domain.Category{
				Name:         "digest",
				Defaults:     domain.ChannelSet{Email: true},
				ForceDefault: domain.ChannelSet{SMS: true},
			},
			choice:   &domain.UserChoice{SMS: boolPtr(true)},
			expected: domain.ChannelSet{Email: true, SMS: false},
		},
		{
			name: "Opt-out honored when force-default off",
			category: &domain.Category{
				Name:     "chat",
				Defaults: domain.ChannelSet{Push: true},
			},
			choice:   &domain.UserChoice{Push: boolPtr(false)},
			expected: domain.ChannelSet{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Resolve(tt.category, tt.choice)
			assert.Equal(t, tt.expected, got)
		})
	}
}
