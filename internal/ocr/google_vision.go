package ocr

import (
	"context"
	"fmt"
	"os"

	vision "cloud.google.com/go/vision/v2/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"google.golang.org/api/option"
)

// VisionEngine recognizes page images with Google Cloud Vision document text detection.
type VisionEngine struct {
	client    *vision.ImageAnnotatorClient
	languages []string
}

// NewVisionEngine creates a Vision engine with credentials from environment.
// It expects either GOOGLE_CREDENTIALS JSON or a GOOGLE_APPLICATION_CREDENTIALS path,
// and falls back to Application Default Credentials.
func NewVisionEngine(ctx context.Context, languages ...string) (*VisionEngine, error) {
	const op = "NewVisionEngine"

	var client *vision.ImageAnnotatorClient
	var err error

	if credJSON := os.Getenv("GOOGLE_CREDENTIALS"); credJSON != "" {
		client, err = vision.NewImageAnnotatorClient(ctx, option.WithCredentialsJSON([]byte(credJSON)))
		if err != nil {
			return nil, WrapOCRError(op, err, "failed to create client with GOOGLE_CREDENTIALS")
		}
	} else if credFile := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); credFile != "" {
		client, err = vision.NewImageAnnotatorClient(ctx, option.WithCredentialsFile(credFile))
		if err != nil {
			return nil, WrapOCRError(op, err, "failed to create client with GOOGLE_APPLICATION_CREDENTIALS")
		}
	} else {
		client, err = vision.NewImageAnnotatorClient(ctx)
		if err != nil {
			return nil, WrapOCRError(op, ErrMissingCredentials, "no credentials found in environment")
		}
	}

	return NewVisionEngineWithClient(client, languages...), nil
}

// NewVisionEngineWithClient creates a Vision engine with an explicit client.
func NewVisionEngineWithClient(client *vision.ImageAnnotatorClient, languages ...string) *VisionEngine {
	return &VisionEngine{
		client:    client,
		languages: append([]string(nil), languages...),
	}
}

// Name implements Engine.
func (v *VisionEngine) Name() string { return "vision" }

// Recognize implements Engine.
func (v *VisionEngine) Recognize(ctx context.Context, pngData []byte) (string, error) {
	req := &visionpb.BatchAnnotateImagesRequest{
		Requests: []*visionpb.AnnotateImageRequest{
			{
				Image: &visionpb.Image{Content: pngData},
				Features: []*visionpb.Feature{
					{Type: visionpb.Feature_DOCUMENT_TEXT_DETECTION},
				},
			},
		},
	}
	if len(v.languages) > 0 {
		req.Requests[0].ImageContext = &visionpb.ImageContext{LanguageHints: v.languages}
	}

	resp, err := v.client.BatchAnnotateImages(ctx, req)
	if err != nil {
		return "", fmt.Errorf("Vision API call failed: %w", err)
	}
	if len(resp.Responses) == 0 {
		return "", fmt.Errorf("no response from Vision API")
	}

	imgResp := resp.Responses[0]
	if imgResp.Error != nil {
		return "", fmt.Errorf("Vision API error: %s", imgResp.Error.Message)
	}
	if imgResp.FullTextAnnotation == nil {
		return "", nil
	}
	return imgResp.FullTextAnnotation.Text, nil
}

// Close closes the underlying Vision client.
func (v *VisionEngine) Close() error {
	if v.client != nil {
		return v.client.Close()
	}
	return nil
}
