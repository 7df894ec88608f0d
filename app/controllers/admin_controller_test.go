package controllers

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/CourseFox/app/repository"
	"github.com/ManuelReschke/CourseFox/internal/pkg/storage"
)

type fakeObjects struct {
	err     error
	lastKey string
	lastTTL time.Duration
	deleted []string
}

func (f *fakeObjects) PresignPut(_ context.Context, key, contentType string, ttl time.Duration) (*storage.PresignedRequest, error) {
	f.lastKey, f.lastTTL = key, ttl
	if f.err != nil {
		return nil, f.err
	}
	return &storage.PresignedRequest{
		Method:  "PUT",
		URL:     "https://bucket.example/" + key,
		Key:     key,
		Headers: map[string]string{"Content-Type": contentType},
	}, nil
}

func (f *fakeObjects) Delete(_ context.Context, key string) error {
	f.deleted = append(f.deleted, key)
	return nil
}

func newUploadApp(objects *fakeObjects) *fiber.App {
	app := fiber.New()
	ac := NewAdminController(&repository.Repositories{}, nil, objects, nil)
	app.Post("/admin/upload/s3-url", ac.HandleUploadURL)
	return app
}

func TestUploadURLFromFilename(t *testing.T) {
	objects := &fakeObjects{}
	app := newUploadApp(objects)

	status, body := doJSON(t, app, fiber.MethodPost, "/admin/upload/s3-url", `{"filename":"Intro Video.mp4","folder":"courses/42","contentType":"video/mp4"}`)

	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "PUT", body["method"])
	assert.True(t, strings.HasPrefix(objects.lastKey, "uploads/courses/42/"), objects.lastKey)
	assert.Equal(t, objects.lastKey, body["key"])
	assert.Equal(t, time.Duration(0), objects.lastTTL)
}

func TestUploadURLWithExplicitKey(t *testing.T) {
	objects := &fakeObjects{}
	app := newUploadApp(objects)

	status, _ := doJSON(t, app, fiber.MethodPost, "/admin/upload/s3-url", `{"key":"courses/42/intro.pdf","contentType":"application/pdf","expiresInSec":600}`)

	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "courses/42/intro.pdf", objects.lastKey)
	assert.Equal(t, 10*time.Minute, objects.lastTTL)
}

func TestUploadURLValidation(t *testing.T) {
	cases := map[string]string{
		"no key or filename": `{"contentType":"video/mp4"}`,
		"no content type":    `{"filename":"a.mp4"}`,
		"traversal key":      `{"key":"../etc/passwd","contentType":"text/plain"}`,
		"ttl too long":       `{"filename":"a.mp4","contentType":"video/mp4","expiresInSec":99999}`,
	}
	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			objects := &fakeObjects{}
			status, _ := doJSON(t, newUploadApp(objects), fiber.MethodPost, "/admin/upload/s3-url", payload)
			assert.Equal(t, fiber.StatusBadRequest, status)
			assert.Empty(t, objects.lastKey)
		})
	}
}

func TestUploadURLStorageFailure(t *testing.T) {
	status, body := doJSON(t, newUploadApp(&fakeObjects{err: errors.New("no bucket")}), fiber.MethodPost, "/admin/upload/s3-url", `{"filename":"a.pdf","contentType":"application/pdf"}`)

	assert.Equal(t, fiber.StatusServiceUnavailable, status)
	assert.Equal(t, "storage_unavailable", body["error"])
}
