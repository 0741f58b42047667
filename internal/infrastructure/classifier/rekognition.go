package classifier

import (
	"context"
	"fmt"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"
	"github.com/rs/zerolog"

	"github.com/janhq/image-upload/internal/domain/tagging"
	"github.com/janhq/image-upload/internal/infrastructure/awsenv"
)

// Options bounds label detection.
type Options struct {
	Region        string
	AccessKeyID   string
	SecretKey     string
	MaxLabels     int32
	MinConfidence float32
}

// DetectLabelsAPI is the subset of the Rekognition client used here.
type DetectLabelsAPI interface {
	DetectLabels(ctx context.Context, params *rekognition.DetectLabelsInput, optFns ...func(*rekognition.Options)) (*rekognition.DetectLabelsOutput, error)
}

// Rekognition labels images stored in S3.
type Rekognition struct {
	api           DetectLabelsAPI
	maxLabels     int32
	minConfidence float32
	log           zerolog.Logger
}

// NewRekognition builds a classifier backed by AWS Rekognition.
func NewRekognition(ctx context.Context, opts Options, log zerolog.Logger) (*Rekognition, error) {
	awsCfg, err := awsenv.Load(ctx, awsenv.Options{
		Region:      opts.Region,
		AccessKeyID: opts.AccessKeyID,
		SecretKey:   opts.SecretKey,
	})
	if err != nil {
		return nil, err
	}
	return NewWithAPI(rekognition.NewFromConfig(awsCfg), opts, log), nil
}

// NewWithAPI wraps an existing DetectLabels implementation.
func NewWithAPI(api DetectLabelsAPI, opts Options, log zerolog.Logger) *Rekognition {
	if opts.MaxLabels <= 0 {
		opts.MaxLabels = 5
	}
	return &Rekognition{
		api:           api,
		maxLabels:     opts.MaxLabels,
		minConfidence: opts.MinConfidence,
		log:           log.With().Str("component", "rekognition-classifier").Logger(),
	}
}

// DetectLabels returns labels for bucket/key ordered by descending confidence.
func (r *Rekognition) DetectLabels(ctx context.Context, bucket, key string) ([]tagging.Label, error) {
	out, err := r.api.DetectLabels(ctx, &rekognition.DetectLabelsInput{
		Image: &types.Image{
			S3Object: &types.S3Object{
				Bucket: aws.String(bucket),
				Name:   aws.String(key),
			},
		},
		MaxLabels:     aws.Int32(r.maxLabels),
		MinConfidence: aws.Float32(r.minConfidence),
	})
	if err != nil {
		return nil, fmt.Errorf("detect labels %s/%s: %w", bucket, key, err)
	}

	labels := make([]tagging.Label, 0, len(out.Labels))
	for _, l := range out.Labels {
		name := aws.ToString(l.Name)
		if name == "" {
			continue
		}
		labels = append(labels, tagging.Label{Name: name, Confidence: aws.ToFloat32(l.Confidence)})
	}
	sort.SliceStable(labels, func(i, j int) bool { return labels[i].Confidence > labels[j].Confidence })

	r.log.Debug().Str("key", key).Int("labels", len(labels)).Msg("labels detected")
	return labels, nil
}
