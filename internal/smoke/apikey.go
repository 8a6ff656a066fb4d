package smoke

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/brianvoe/gofakeit/v7"

	"github.com/aichatbot/chatbot-api/internal/apiclient"
	"github.com/aichatbot/chatbot-api/internal/model"
)

const testVendor = model.VendorOpenAI

// APIKeySuite checks provider key management. New keys are verified with the
// provider, so a deployment that reaches the real provider rejects the
// throwaway key and the checks that need a stored key skip.
func APIKeySuite() Suite {
	return Suite{
		Name: "apikey",
		Checks: []Check{
			{Name: "create_api_key", Run: checkCreateAPIKey},
			{Name: "list_api_keys", Run: checkListAPIKeys},
			{Name: "get_api_key", Run: checkGetAPIKey},
			{Name: "update_api_key", Run: checkUpdateAPIKey},
			{Name: "verify_api_key", Run: checkVerifyAPIKey},
			{Name: "delete_api_key", Run: checkDeleteAPIKey},
			{Name: "owned_api_keys", Run: checkOwnedAPIKeys},
		},
	}
}

func randomProviderKey() string {
	return "sk-test-" + strings.ToLower(gofakeit.LetterN(24))
}

// createTestKey stores a throwaway key. A provider rejection is a skip.
func createTestKey(ctx context.Context, c *apiclient.Client) (*model.APIKeyResponse, error) {
	active := true
	key, err := c.CreateAPIKey(ctx, apiclient.CreateAPIKeyRequest{
		Vendor:   testVendor,
		APIKey:   randomProviderKey(),
		IsActive: &active,
	})
	if apiclient.StatusCode(err) == http.StatusBadRequest {
		return nil, Skipf("provider rejected the test key: %v", err)
	}
	if err != nil {
		return nil, fmt.Errorf("create key: %w", err)
	}
	return key, nil
}

// withTestKey signs in, stores a throwaway key for fn and deletes it again.
func withTestKey(ctx context.Context, f *Fixture, fn func(c *apiclient.Client, key *model.APIKeyResponse) error) (err error) {
	c, err := f.Login(ctx)
	if err != nil {
		return err
	}
	key, err := createTestKey(ctx, c)
	if err != nil {
		return err
	}
	defer func() {
		cctx, cancel := cleanupContext(ctx)
		defer cancel()
		if _, derr := c.DeleteAPIKey(cctx, key.ID); derr != nil && !apiclient.IsNotFound(derr) && err == nil {
			err = fmt.Errorf("delete key %d: %w", key.ID, derr)
		}
	}()
	return fn(c, key)
}

func checkCreateAPIKey(ctx context.Context, f *Fixture) error {
	return withTestKey(ctx, f, func(c *apiclient.Client, key *model.APIKeyResponse) error {
		switch {
		case key.Vendor != testVendor:
			return fmt.Errorf("vendor = %q, want %q", key.Vendor, testVendor)
		case !key.IsActive:
			return fmt.Errorf("is_active = false, want true")
		case key.MaskedKey == "":
			return fmt.Errorf("masked_key is empty")
		case key.Key != nil:
			return fmt.Errorf("create answer exposes the plaintext key")
		}
		return nil
	})
}

func checkListAPIKeys(ctx context.Context, f *Fixture) error {
	return withTestKey(ctx, f, func(c *apiclient.Client, key *model.APIKeyResponse) error {
		keys, err := c.ListAPIKeys(ctx)
		if err != nil {
			return err
		}
		for _, k := range keys {
			if k.ID != key.ID {
				continue
			}
			if k.Vendor != key.Vendor {
				return fmt.Errorf("listed vendor = %q, want %q", k.Vendor, key.Vendor)
			}
			if k.MaskedKey == "" || k.Key != nil {
				return fmt.Errorf("listed key %d is not masked", k.ID)
			}
			return nil
		}
		return fmt.Errorf("key %d missing from list of %d", key.ID, len(keys))
	})
}

func checkGetAPIKey(ctx context.Context, f *Fixture) error {
	return withTestKey(ctx, f, func(c *apiclient.Client, key *model.APIKeyResponse) error {
		got, err := c.GetAPIKey(ctx, key.ID)
		if err != nil {
			return err
		}
		switch {
		case got.ID != key.ID:
			return fmt.Errorf("api_key_id = %d, want %d", got.ID, key.ID)
		case got.MaskedKey == "":
			return fmt.Errorf("masked_key is empty")
		case got.Key == nil || !strings.HasPrefix(*got.Key, "sk-test-"):
			return fmt.Errorf("detail does not carry the decrypted key")
		}
		return nil
	})
}

func checkUpdateAPIKey(ctx context.Context, f *Fixture) error {
	return withTestKey(ctx, f, func(c *apiclient.Client, key *model.APIKeyResponse) error {
		vendor, active := model.VendorAnthropic, false
		got, err := c.UpdateAPIKey(ctx, key.ID, apiclient.UpdateAPIKeyRequest{Vendor: &vendor, IsActive: &active})
		if err != nil {
			return err
		}
		if got.Vendor != vendor || got.IsActive {
			return fmt.Errorf("updated key = {vendor: %q, is_active: %t}, want {%q, false}", got.Vendor, got.IsActive, vendor)
		}
		return nil
	})
}

// checkVerifyAPIKey only requires an answer: whether the random key is valid
// is up to the provider.
func checkVerifyAPIKey(ctx context.Context, f *Fixture) error {
	c, err := f.Login(ctx)
	if err != nil {
		return err
	}
	res, err := c.VerifyAPIKey(ctx, testVendor, randomProviderKey())
	if err != nil {
		return err
	}
	if res.Message == "" {
		return fmt.Errorf("verify answer has no message")
	}
	return nil
}

func checkDeleteAPIKey(ctx context.Context, f *Fixture) error {
	c, err := f.Login(ctx)
	if err != nil {
		return err
	}
	key, err := createTestKey(ctx, c)
	if err != nil {
		return err
	}

	msg, err := c.DeleteAPIKey(ctx, key.ID)
	if err != nil {
		return err
	}
	if msg.Message == "" {
		return fmt.Errorf("delete answer has no message")
	}
	_, err = c.GetAPIKey(ctx, key.ID)
	return expectAPIError(err, http.StatusNotFound)
}

func checkOwnedAPIKeys(ctx context.Context, f *Fixture) error {
	c, err := f.Login(ctx)
	if err != nil {
		return err
	}
	keys, err := c.OwnedAPIKeys(ctx)
	if err != nil {
		return err
	}
	for _, k := range keys {
		if k.ID <= 0 || k.Vendor == "" {
			return fmt.Errorf("owned key %+v lacks api_key_id or vendor", k)
		}
	}
	return nil
}
