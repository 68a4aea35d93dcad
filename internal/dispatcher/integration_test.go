//go:build integration

package dispatcher

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/require"
	_ "gocloud.dev/blob/s3blob"

	"github.com/ligustah/grab/internal/testutils"
	"github.com/ligustah/grab/pkg/manifest"
)

func TestBucketStoreIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	files := []testutils.TestFile{
		{Name: "a.png", Data: testutils.GenerateTestData(t, 32*1024), Delay: 100 * time.Millisecond},
		{Name: "b/c.jpg", Data: testutils.GenerateTestData(t, 256*1024), Delay: 100 * time.Millisecond},
		{Name: "d.webp", Data: testutils.GenerateTestData(t, 12*1024*1024)},
	}
	server := testutils.StartTestHTTPServer(t, files)

	minio := testutils.StartMinioContainer(t, ctx, "grab-dispatch-test")
	defer minio.Close(ctx)

	st, err := minio.OpenStore(ctx)
	require.NoError(t, err)
	defer st.Close()

	opts := Options{Store: st, WriteManifest: true, Logger: log.New(io.Discard)}
	useTestWorker(t, &opts, "serve")
	d, err := New(opts)
	require.NoError(t, err)

	urls := []string{server.URL + "/a.png", server.URL + "/b/c.jpg", server.URL + "/d.webp", server.URL + "/missing.png"}

	for _, s := range Strategies {
		t.Run(s.String(), func(t *testing.T) {
			batch, err := d.RunBatch(ctx, urls, s)
			require.NoError(t, err)
			require.Equal(t, 3, batch.Succeeded(), "errors: %v", batchErrors(batch))
			require.Equal(t, 1, batch.Failed())

			for _, f := range files {
				for _, r := range batch.Results {
					if r.Task.URL == server.URL+"/"+f.Name {
						data, err := st.ReadAll(ctx, r.Key)
						require.NoError(t, err)
						require.Equal(t, f.Data, data)
					}
				}
			}

			result, err := manifest.Validate(ctx, st, s.String(), manifest.WithChecksums())
			require.NoError(t, err)
			require.True(t, result.Valid, result.Errors)

			require.NoError(t, manifest.Delete(ctx, st, s.String()))
		})
	}
}
