package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"

	"sportsrag/types"
)

type fakeObjectAPI struct {
	objects map[string][]byte
}

func newFakeObjectAPI() *fakeObjectAPI {
	return &fakeObjectAPI{objects: make(map[string][]byte)}
}

func (f *fakeObjectAPI) PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[*in.Key] = data
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeObjectAPI) GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	data, ok := f.objects[*in.Key]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeObjectAPI) HeadObject(ctx context.Context, in *s3.HeadObjectInput, opts ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	if _, ok := f.objects[*in.Key]; !ok {
		return nil, errors.New("NotFound")
	}
	return &s3.HeadObjectOutput{}, nil
}

func testArticle() *types.Article {
	url := "https://example.com/match"
	return &types.Article{
		ID:     types.GenerateID(url),
		Title:  "Match Report",
		URL:    url,
		Source: "espn",
		Text:   "Team A beat Team B 3-1 on Saturday.",
	}
}

func TestArchiveRoundTrip(t *testing.T) {
	api := newFakeObjectAPI()
	a := &Archive{client: api, bucket: "news", prefix: "articles"}
	article := testArticle()

	if err := a.Archive(context.Background(), article); err != nil {
		t.Fatalf("Archive returned error: %v", err)
	}

	key := "articles/espn/" + article.ID + ".json"
	data, ok := api.objects[key]
	if !ok {
		t.Fatalf("snapshot not stored under %q; have %v", key, keysOf(api.objects))
	}
	var stored types.Article
	if err := json.Unmarshal(data, &stored); err != nil {
		t.Fatalf("snapshot is not valid JSON: %v", err)
	}

	got, err := a.Fetch(context.Background(), "espn", article.ID)
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if got.Title != article.Title || got.Text != article.Text {
		t.Errorf("fetched article = %+v, want %+v", got, article)
	}
}

func TestArchiveOverwritesSameArticle(t *testing.T) {
	api := newFakeObjectAPI()
	a := &Archive{client: api, bucket: "news", prefix: "articles"}
	article := testArticle()

	if err := a.Archive(context.Background(), article); err != nil {
		t.Fatalf("first Archive: %v", err)
	}
	article.Text = "Updated report after extra time."
	if err := a.Archive(context.Background(), article); err != nil {
		t.Fatalf("second Archive: %v", err)
	}

	if len(api.objects) != 1 {
		t.Errorf("re-archiving created %d objects, want 1", len(api.objects))
	}
	got, err := a.Fetch(context.Background(), "espn", article.ID)
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if got.Text != "Updated report after extra time." {
		t.Errorf("fetched stale snapshot: %q", got.Text)
	}
}

func keysOf(m map[string][]byte) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}
