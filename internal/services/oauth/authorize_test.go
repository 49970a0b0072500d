package oauth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeShopDomain(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Demo-Shop", "demo-shop.myshopify.com"},
		{"  store  ", "store.myshopify.com"},
		{"https://Demo.myshopify.com/", "demo.myshopify.com"},
		{"http://demo.myshopify.com", "demo.myshopify.com"},
		{"demo.myshopify.com", "demo.myshopify.com"},
		{"shop.example.com", "shop.example.com"},
		{"", ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, NormalizeShopDomain(tc.in), "input %q", tc.in)
	}
}

func TestIsValidShopDomain(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"demo.myshopify.com", true},
		{"demo-shop.myshopify.com", true},
		{".myshopify.com", false},
		{"demo.myshopify.com/evil", false},
		{"demo shop.myshopify.com", false},
		{"example.com", false},
		{"", false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, IsValidShopDomain(tc.in), "input %q", tc.in)
	}
}
