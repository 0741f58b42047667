package classifier_test

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/janhq/image-upload/internal/infrastructure/classifier"
)

type fakeRekognition struct {
	input *rekognition.DetectLabelsInput
	out   *rekognition.DetectLabelsOutput
	err   error
}

func (f *fakeRekognition) DetectLabels(_ context.Context, in *rekognition.DetectLabelsInput, _ ...func(*rekognition.Options)) (*rekognition.DetectLabelsOutput, error) {
	f.input = in
	return f.out, f.err
}

func TestDetectLabelsOrdersByConfidence(t *testing.T) {
	fake := &fakeRekognition{out: &rekognition.DetectLabelsOutput{Labels: []types.Label{
		{Name: aws.String("Animal"), Confidence: aws.Float32(88)},
		{Name: aws.String("Cat"), Confidence: aws.Float32(97.5)},
		{Name: aws.String(""), Confidence: aws.Float32(99)},
	}}}
	c := classifier.NewWithAPI(fake, classifier.Options{MaxLabels: 5, MinConfidence: 70}, zerolog.Nop())

	labels, err := c.DetectLabels(context.Background(), "images", "uploads/cat.jpg")
	require.NoError(t, err)
	require.Len(t, labels, 2)
	assert.Equal(t, "Cat", labels[0].Name)
	assert.Equal(t, "Animal", labels[1].Name)

	assert.Equal(t, "images", aws.ToString(fake.input.Image.S3Object.Bucket))
	assert.Equal(t, "uploads/cat.jpg", aws.ToString(fake.input.Image.S3Object.Name))
	assert.Equal(t, int32(5), aws.ToInt32(fake.input.MaxLabels))
	assert.Equal(t, float32(70), aws.ToFloat32(fake.input.MinConfidence))
}

func TestDetectLabelsError(t *testing.T) {
	fake := &fakeRekognition{err: errors.New("throttled")}
	c := classifier.NewWithAPI(fake, classifier.Options{}, zerolog.Nop())

	_, err := c.DetectLabels(context.Background(), "images", "uploads/cat.jpg")
	assert.ErrorContains(t, err, "throttled")
}
