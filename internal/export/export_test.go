package export

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/alfredjeanlab/policyconf/internal/model"
)

func sampleRecord() model.Configuration {
	return model.Configuration{
		ID:            "cfg-0123456789",
		Name:          "Work laptop",
		Time:          time.UnixMilli(1714564800123).UTC(),
		Configuration: json.RawMessage(`{"fields":{"DisableAppUpdate":{"checked":true}}}`),
	}
}

func TestFilename(t *testing.T) {
	if got := Filename(sampleRecord()); got != "policy-export-1714564800123.policy" {
		t.Errorf("Filename = %q", got)
	}
}

func TestEncode(t *testing.T) {
	data, err := Encode(sampleRecord())
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	payload, err := base64.StdEncoding.DecodeString(string(data))
	if err != nil {
		t.Fatalf("artifact is not standard base64: %v", err)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(payload, &fields); err != nil {
		t.Fatalf("payload is not JSON: %v", err)
	}
	if len(fields) != 3 {
		t.Errorf("payload keys = %v, want name, time, configuration", fields)
	}
	for _, k := range []string{"name", "time", "configuration"} {
		if _, ok := fields[k]; !ok {
			t.Errorf("payload missing %q", k)
		}
	}
}

func TestDecodeRoundTrip(t *testing.T) {
	in := sampleRecord()
	data, err := Encode(in)
	if err != nil {
		t.Fatal(err)
	}
	out, err := Decode(append(data, '\n'))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if out.ID != "" {
		t.Errorf("decoded record carries id %q", out.ID)
	}
	if out.Name != in.Name || !out.Time.Equal(in.Time) || string(out.Configuration) != string(in.Configuration) {
		t.Errorf("round trip mismatch: %+v vs %+v", out, in)
	}
}

func TestDecode_Errors(t *testing.T) {
	noName := base64.StdEncoding.EncodeToString([]byte(`{"name":"","time":"2024-01-01T00:00:00Z","configuration":{}}`))
	notJSON := base64.StdEncoding.EncodeToString([]byte(`nope`))
	for name, data := range map[string]string{
		"NotBase64": "%%%",
		"NotJSON":   notJSON,
		"NoName":    noName,
		"Empty":     "",
	} {
		t.Run(name, func(t *testing.T) {
			if _, err := Decode([]byte(data)); !errors.Is(err, model.ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestDirDestination(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "exports")
	d := NewDirDestination(dir)
	loc, err := d.Write(context.Background(), "policy-export-1.policy", []byte("abc"))
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if loc != filepath.Join(dir, "policy-export-1.policy") {
		t.Errorf("location = %q", loc)
	}
	got, err := os.ReadFile(loc)
	if err != nil || string(got) != "abc" {
		t.Fatalf("ReadFile = %q, %v", got, err)
	}

	// Overwrite is allowed.
	if _, err := d.Write(context.Background(), "policy-export-1.policy", []byte("def")); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
}

func TestDirDestination_RejectsPaths(t *testing.T) {
	d := NewDirDestination(t.TempDir())
	for _, name := range []string{"../escape.policy", "a/b.policy", "..", "."} {
		if _, err := d.Write(context.Background(), name, nil); err == nil {
			t.Errorf("Write(%q) should fail", name)
		}
	}
}

// fakeS3 records PutObject calls.
type fakeS3 struct {
	in   *s3.PutObjectInput
	body []byte
	err  error
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.in = in
	f.body, _ = io.ReadAll(in.Body)
	return &s3.PutObjectOutput{}, nil
}

func TestS3Destination(t *testing.T) {
	fake := &fakeS3{}
	d := &S3Destination{client: fake, bucket: "policies", prefix: "exports/team"}

	loc, err := d.Write(context.Background(), "policy-export-1.policy", []byte("abc"))
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if loc != "s3://policies/exports/team/policy-export-1.policy" {
		t.Errorf("location = %q", loc)
	}
	if aws.ToString(fake.in.Bucket) != "policies" || aws.ToString(fake.in.Key) != "exports/team/policy-export-1.policy" {
		t.Errorf("PutObject target = %s/%s", aws.ToString(fake.in.Bucket), aws.ToString(fake.in.Key))
	}
	if aws.ToString(fake.in.ContentType) != ContentType {
		t.Errorf("ContentType = %q", aws.ToString(fake.in.ContentType))
	}
	if string(fake.body) != "abc" {
		t.Errorf("body = %q", fake.body)
	}
}

func TestS3Destination_NoPrefix(t *testing.T) {
	d := &S3Destination{bucket: "b"}
	if got := d.Key("x.policy"); got != "x.policy" {
		t.Errorf("Key = %q", got)
	}
}

func TestS3Destination_Error(t *testing.T) {
	d := &S3Destination{client: &fakeS3{err: errors.New("access denied")}, bucket: "b"}
	if _, err := d.Write(context.Background(), "x.policy", nil); err == nil {
		t.Fatal("expected error")
	}
}
