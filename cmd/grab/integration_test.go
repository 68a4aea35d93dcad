//go:build integration

package main

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/ligustah/grab/internal/testutils"
)

func TestCLIIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	files := []testutils.TestFile{
		{Name: "images/one.png", ContentType: "image/png", Data: testutils.GenerateTestData(t, 64*1024)},
		{Name: "images/two.jpg", ContentType: "image/jpeg", Data: testutils.GenerateTestData(t, 128*1024)},
		{Name: "three.gif", ContentType: "image/gif", Data: testutils.GenerateTestData(t, 1024)},
	}

	t.Log("Starting HTTP test server...")
	server := testutils.StartTestHTTPServer(t, files)

	t.Log("Starting Minio container...")
	minio := testutils.StartMinioContainer(t, ctx, "grab-cli-test")
	defer func() {
		if err := minio.Close(ctx); err != nil {
			t.Logf("failed to terminate minio container: %v", err)
		}
	}()

	var urls []string
	for _, f := range files {
		urls = append(urls, server.URL+"/"+f.Name)
	}

	t.Run("fetch", func(t *testing.T) {
		res := grab(t, append([]string{"fetch", "-o", minio.BucketURL, "-s", "all"}, urls...)...)
		if res.code != ExitSuccess {
			t.Fatalf("fetch failed with exit code %d: %s", res.code, res.stderr)
		}
		for _, s := range []string{"threads", "processes", "async"} {
			if !strings.Contains(res.stdout, "["+s+"]") {
				t.Errorf("missing %s summary in %q", s, res.stdout)
			}
		}
	})

	t.Run("validate", func(t *testing.T) {
		res := grab(t, "validate", "-o", minio.BucketURL, "--checksums")
		if res.code != ExitSuccess {
			t.Fatalf("validate failed with exit code %d: %s", res.code, res.stdout)
		}
	})

	t.Run("delete", func(t *testing.T) {
		res := grab(t, "delete", "-o", minio.BucketURL, "-s", "all")
		if res.code != ExitSuccess {
			t.Fatalf("delete failed with exit code %d: %s", res.code, res.stderr)
		}

		// Nothing left to validate
		res = grab(t, "validate", "-o", minio.BucketURL)
		if res.code == ExitSuccess {
			t.Fatal("validate should have failed after delete")
		}
	})
}
