package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/aofei/air"
	"github.com/askcn/ask/base"
	"github.com/askcn/ask/model"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/tidwall/gjson"
)

// statsObjectName is the object name of the published statistics.
const statsObjectName = "stats/summary"

var (
	// stats is the latest statistics snapshot.
	stats atomic.Pointer[model.Stats]

	// statsMinIOClient is the client of the object storage the statistics
	// are published to. Nil means publishing is disabled.
	statsMinIOClient *minio.Client

	// statsBucketName is the bucket name the statistics are published to.
	statsBucketName string
)

func init() {
	base.Air.BATCH(
		getHeadMethods,
		"/stats/summary",
		hStatSummary,
		hourlyCachemanGas,
	)

	base.Air.BATCH(getHeadMethods, "/stats", hStatsPage, noStoreCachemanGas)
}

// setupStatsPublishing connects the object storage the statistics are
// published to, if the endpoint is configured.
func setupStatsPublishing() error {
	endpoint := base.Viper.GetString("stats.object_storage_endpoint")
	if endpoint == "" {
		return nil
	}

	u, err := url.Parse(endpoint)
	if err != nil {
		return err
	}

	options := &minio.Options{
		Creds: credentials.NewStaticV4(
			base.Viper.GetString("stats.access_key"),
			base.Viper.GetString("stats.secret_key"),
			"",
		),
		Secure:       u.Scheme == "https",
		BucketLookup: minio.BucketLookupPath,
	}

	u.Scheme = ""
	statsMinIOClient, err = minio.New(
		strings.TrimPrefix(u.String(), "//"),
		options,
	)
	if err != nil {
		return err
	}

	statsBucketName = base.Viper.GetString("stats.bucket_name")

	return nil
}

// loadPublishedStats seeds the `stats` with the last published snapshot.
func loadPublishedStats(ctx context.Context) error {
	if statsMinIOClient == nil {
		return nil
	}

	object, err := statsMinIOClient.GetObject(
		ctx,
		statsBucketName,
		statsObjectName,
		minio.GetObjectOptions{},
	)
	if err != nil {
		return err
	}
	defer object.Close()

	b, err := io.ReadAll(object)
	if err != nil {
		if isMinIOObjectNotExist(err) {
			return nil
		}

		return err
	}

	stats.CompareAndSwap(nil, parseStats(b))

	return nil
}

// parseStats parses the JSON statistics snapshot b.
func parseStats(b []byte) *model.Stats {
	r := gjson.ParseBytes(b)
	return &model.Stats{
		UserCount:     r.Get("user_count").Int(),
		QuestionCount: r.Get("question_count").Int(),
		AnswerCount:   r.Get("answer_count").Int(),
		LikeCount:     r.Get("like_count").Int(),
		UpdatedAt:     r.Get("updated_at").Time().UTC(),
	}
}

// updateStats recomputes the `stats` and publishes them.
func updateStats(ctx context.Context) error {
	s, err := qaStore.Stats(ctx, now())
	if err != nil {
		return err
	}

	stats.Store(s)

	if statsMinIOClient == nil {
		return nil
	}

	b, err := json.Marshal(s)
	if err != nil {
		return err
	}

	return base.RetryN(ctx, func(ctx context.Context) error {
		_, err := statsMinIOClient.PutObject(
			ctx,
			statsBucketName,
			statsObjectName,
			bytes.NewReader(b),
			int64(len(b)),
			minio.PutObjectOptions{
				ContentType: "application/json; charset=utf-8",
			},
		)
		return err
	}, isRetryableMinIOError, time.Second, 3)
}

// currentStats returns the latest statistics snapshot, computing it if there
// is none yet.
func currentStats(ctx context.Context) (*model.Stats, error) {
	if s := stats.Load(); s != nil {
		return s, nil
	}

	s, err := qaStore.Stats(ctx, now())
	if err != nil {
		return nil, err
	}

	stats.CompareAndSwap(nil, s)

	return s, nil
}

// hStatSummary handles requests to query stat summary.
func hStatSummary(req *air.Request, res *air.Response) error {
	s, err := currentStats(req.Context)
	if err != nil {
		return err
	}

	res.Header.Set(
		"Last-Modified",
		s.UpdatedAt.UTC().Format(http.TimeFormat),
	)

	return res.WriteJSON(s)
}

// hStatsPage handles requests to get statistics page.
func hStatsPage(req *air.Request, res *air.Response) error {
	s, err := currentStats(req.Context)
	if err != nil {
		return err
	}

	return render(req, res, "stats.html", map[string]interface{}{
		"PageTitle":     req.LocalizedString("Statistics"),
		"CanonicalPath": "/stats",
		"IsStatsPage":   true,
		"Stats":         s,
	})
}

// isMinIOObjectNotExist reports whether the err means a MinIO object is not
// exist.
func isMinIOObjectNotExist(err error) bool {
	return minio.ToErrorResponse(err).StatusCode == http.StatusNotFound
}

// isRetryableMinIOError reports whether the err is a transient MinIO error.
func isRetryableMinIOError(err error) bool {
	if errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	switch minio.ToErrorResponse(err).StatusCode {
	case http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}

	return false
}
