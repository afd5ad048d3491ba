package insight

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/fieldinsights/field-sync-client/internal/testutil"
	"github.com/fieldinsights/field-sync-client/pkg/api"
	"github.com/fieldinsights/field-sync-client/pkg/capture"
	"github.com/fieldinsights/field-sync-client/pkg/upload"
)

func newTestPipeline(t *testing.T) (*Pipeline, *testutil.MockAPI) {
	t.Helper()
	mock := testutil.NewMockAPI()
	t.Cleanup(mock.Close)

	apiClient := api.New(mock.URL(), nil)
	return NewPipeline(apiClient, upload.New(apiClient, nil)), mock
}

func testBlobs(audioSize, photoSize int) []capture.Blob {
	return []capture.Blob{
		{
			Role:     capture.RoleAudio,
			MIME:     "audio/webm",
			Filename: "note.webm",
			Data:     bytes.Repeat([]byte("a"), audioSize),
		},
		{
			Role:     capture.RolePhoto,
			MIME:     "image/jpeg",
			Filename: "photo.jpg",
			Data:     bytes.Repeat([]byte("p"), photoSize),
		},
	}
}

func TestPipeline_Submit_TwoBlobs(t *testing.T) {
	pipeline, mock := newTestPipeline(t)

	draft := Draft{ProductLineID: "pl-1", Text: "obiezione prezzo"}
	blobs := testBlobs(12*1024, 200*1024)

	result, err := pipeline.Submit(context.Background(), draft, blobs)
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if result.ID != "i-1" {
		t.Errorf("ID = %s", result.ID)
	}

	// Exactly two ticket acquisitions, two PUTs, then one POST, in that
	// order: audio first, then photo.
	want := []string{"presign", "put", "presign", "put", "insight"}
	ops := mock.OpSequence()
	if len(ops) != len(want) {
		t.Fatalf("ops = %v, want %v", ops, want)
	}
	for i := range want {
		if ops[i] != want[i] {
			t.Fatalf("ops = %v, want %v", ops, want)
		}
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(mock.LastInsight, &payload); err != nil {
		t.Fatalf("unmarshal submission: %v", err)
	}
	if payload["productLineId"] != "pl-1" {
		t.Errorf("productLineId = %v", payload["productLineId"])
	}
	if payload["type"] != "INSIGHT" {
		t.Errorf("type = %v, want default INSIGHT", payload["type"])
	}
	if payload["text"] != "obiezione prezzo" {
		t.Errorf("text = %v", payload["text"])
	}
	if payload["audioUrl"] != result.AudioKey || result.AudioKey == "" {
		t.Errorf("audioUrl = %v, result key = %s", payload["audioUrl"], result.AudioKey)
	}
	if payload["photoUrl"] != result.PhotoKey || result.PhotoKey == "" {
		t.Errorf("photoUrl = %v, result key = %s", payload["photoUrl"], result.PhotoKey)
	}
	if len(mock.Objects[result.AudioKey]) != 12*1024 {
		t.Errorf("audio object size = %d", len(mock.Objects[result.AudioKey]))
	}
	if len(mock.Objects[result.PhotoKey]) != 200*1024 {
		t.Errorf("photo object size = %d", len(mock.Objects[result.PhotoKey]))
	}
}

func TestPipeline_Submit_TextOnly(t *testing.T) {
	pipeline, mock := newTestPipeline(t)

	draft := Draft{ProductLineID: "pl-1", Text: "solo testo"}

	if _, err := pipeline.Submit(context.Background(), draft, nil); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	if mock.PresignCount != 0 {
		t.Errorf("PresignCount = %d, want 0", mock.PresignCount)
	}
	if mock.InsightCount != 1 {
		t.Errorf("InsightCount = %d, want 1", mock.InsightCount)
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(mock.LastInsight, &payload); err != nil {
		t.Fatalf("unmarshal submission: %v", err)
	}
	if _, present := payload["audioUrl"]; present {
		t.Error("audioUrl should be omitted without an audio blob")
	}
}

func TestPipeline_Submit_EmptyBlobsSkipped(t *testing.T) {
	pipeline, mock := newTestPipeline(t)

	blobs := []capture.Blob{
		{Role: capture.RoleAudio, MIME: "audio/webm", Filename: "note.webm"}, // empty
	}

	if _, err := pipeline.Submit(context.Background(), Draft{ProductLineID: "pl-1"}, blobs); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if mock.PresignCount != 0 {
		t.Errorf("empty blob triggered %d presigns", mock.PresignCount)
	}
}

func TestPipeline_Submit_PresignFailureAbortsSubmission(t *testing.T) {
	pipeline, mock := newTestPipeline(t)
	mock.FailPresignFor("photo")

	_, err := pipeline.Submit(context.Background(), Draft{ProductLineID: "pl-1"}, testBlobs(100, 100))
	if err == nil {
		t.Fatal("Submit should fail when photo presign fails")
	}

	var se *SubmitError
	if !errors.As(err, &se) {
		t.Fatalf("error type = %T", err)
	}
	if se.Stage != StageUpload || se.Role != capture.RolePhoto {
		t.Errorf("SubmitError = stage %s role %s", se.Stage, se.Role)
	}

	// The structured POST is never issued.
	if mock.InsightCount != 0 {
		t.Errorf("InsightCount = %d, want 0", mock.InsightCount)
	}
}

func TestPipeline_Submit_SecondPutFailureBlocksPost(t *testing.T) {
	pipeline, mock := newTestPipeline(t)
	mock.FailPutFor("photo")

	_, err := pipeline.Submit(context.Background(), Draft{ProductLineID: "pl-1"}, testBlobs(100, 100))
	if err == nil {
		t.Fatal("Submit should fail when the photo PUT fails")
	}

	var se *SubmitError
	if !errors.As(err, &se) {
		t.Fatalf("error type = %T", err)
	}
	if se.Stage != StageUpload {
		t.Errorf("Stage = %s, want upload", se.Stage)
	}
	if mock.InsightCount != 0 {
		t.Errorf("POST issued despite failed upload")
	}
}

func TestPipeline_Submit_PostFailureDistinguished(t *testing.T) {
	pipeline, mock := newTestPipeline(t)
	mock.FailInsights(true)

	_, err := pipeline.Submit(context.Background(), Draft{ProductLineID: "pl-1", Text: "x"}, nil)
	if err == nil {
		t.Fatal("Submit should fail")
	}

	var se *SubmitError
	if !errors.As(err, &se) {
		t.Fatalf("error type = %T", err)
	}
	if se.Stage != StageSubmit {
		t.Errorf("Stage = %s, want submit", se.Stage)
	}
}

func TestPipeline_Submit_LocationMetadata(t *testing.T) {
	pipeline, mock := newTestPipeline(t)

	draft := Draft{
		ProductLineID: "pl-1",
		Type:          TypeCI,
		Location:      &capture.Location{Lat: 45.46, Lng: 9.19},
	}

	if _, err := pipeline.Submit(context.Background(), draft, nil); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	var payload struct {
		Type     string `json:"type"`
		Metadata struct {
			Location capture.Location `json:"location"`
		} `json:"metadata"`
	}
	if err := json.Unmarshal(mock.LastInsight, &payload); err != nil {
		t.Fatalf("unmarshal submission: %v", err)
	}
	if payload.Type != "CI" {
		t.Errorf("type = %s", payload.Type)
	}
	if payload.Metadata.Location.Lat != 45.46 || payload.Metadata.Location.Lng != 9.19 {
		t.Errorf("location = %+v", payload.Metadata.Location)
	}
}

func TestPipeline_Submit_RequiresProductLine(t *testing.T) {
	pipeline, mock := newTestPipeline(t)

	if _, err := pipeline.Submit(context.Background(), Draft{}, nil); err == nil {
		t.Fatal("Submit without product line should fail")
	}
	if mock.InsightCount != 0 {
		t.Error("POST issued for invalid draft")
	}
}
