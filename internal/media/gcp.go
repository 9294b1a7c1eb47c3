package media

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	videointelligence "cloud.google.com/go/videointelligence/apiv1"
	"cloud.google.com/go/videointelligence/apiv1/videointelligencepb"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"neurolearn-backend/internal/shared/logging"
)

const (
	audioTimeout = 3 * time.Minute
	videoTimeout = 20 * time.Minute

	maxTranscribeRetries = 4
	retryBaseDelay       = 750 * time.Millisecond
	retryMaxDelay        = 10 * time.Second
)

// GCP transcribes media through the Cloud Speech-to-Text and Video
// Intelligence APIs.
type GCP struct {
	log          *logging.Logger
	speechClient *speech.Client
	videoClient  *videointelligence.Client
	languageCode string

	sleep func(d time.Duration)
}

// NewGCP builds the GCP transcriber. It fails when no credentials are
// reachable, so callers can fall back to Disabled.
func NewGCP(ctx context.Context, languageCode string, log *logging.Logger) (*GCP, error) {
	if log == nil {
		log = logging.Nop()
	}
	if languageCode == "" {
		languageCode = "en-US"
	}
	opts := clientOptionsFromEnv()

	sc, err := speech.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("speech client: %w", err)
	}
	vc, err := videointelligence.NewClient(ctx, opts...)
	if err != nil {
		_ = sc.Close()
		return nil, fmt.Errorf("videointelligence client: %w", err)
	}

	return &GCP{
		log:          log.With("component", "media.gcp"),
		speechClient: sc,
		videoClient:  vc,
		languageCode: languageCode,
		sleep:        time.Sleep,
	}, nil
}

func (g *GCP) Close() error {
	var first error
	if g.speechClient != nil {
		if err := g.speechClient.Close(); err != nil {
			first = err
		}
	}
	if g.videoClient != nil {
		if err := g.videoClient.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// TranscribeAudio runs LongRunningRecognize over the raw audio bytes.
func (g *GCP) TranscribeAudio(ctx context.Context, data []byte, mimeType string) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("empty audio payload")
	}
	ctx, cancel := context.WithTimeout(ctx, audioTimeout)
	defer cancel()

	req := &speechpb.LongRunningRecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			LanguageCode:               g.languageCode,
			EnableAutomaticPunctuation: true,
			Encoding:                   inferAudioEncoding(mimeType),
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: data},
		},
	}

	var resp *speechpb.LongRunningRecognizeResponse
	err := g.withRetries(ctx, "speech.longrunningrecognize", func() error {
		op, err := g.speechClient.LongRunningRecognize(ctx, req)
		if err != nil {
			return err
		}
		resp, err = op.Wait(ctx)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("transcribe audio: %w", err)
	}

	text := flattenSpeechResults(resp)
	if text == "" {
		return "", fmt.Errorf("no speech recognized in audio")
	}
	return text, nil
}

// TranscribeVideo annotates the video with speech transcription and returns
// the joined transcript.
func (g *GCP) TranscribeVideo(ctx context.Context, data []byte, mimeType string) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("empty video payload")
	}
	ctx, cancel := context.WithTimeout(ctx, videoTimeout)
	defer cancel()

	req := &videointelligencepb.AnnotateVideoRequest{
		InputContent: data,
		Features:     []videointelligencepb.Feature{videointelligencepb.Feature_SPEECH_TRANSCRIPTION},
		VideoContext: &videointelligencepb.VideoContext{
			SpeechTranscriptionConfig: &videointelligencepb.SpeechTranscriptionConfig{
				LanguageCode:               g.languageCode,
				EnableAutomaticPunctuation: true,
			},
		},
	}

	var resp *videointelligencepb.AnnotateVideoResponse
	err := g.withRetries(ctx, "videointelligence.annotate", func() error {
		op, err := g.videoClient.AnnotateVideo(ctx, req)
		if err != nil {
			return err
		}
		resp, err = op.Wait(ctx)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("transcribe video: %w", err)
	}

	text := flattenVideoResults(resp)
	if text == "" {
		return "", fmt.Errorf("no speech recognized in video")
	}
	return text, nil
}

func (g *GCP) withRetries(ctx context.Context, opName string, fn func() error) error {
	delay := retryBaseDelay
	var last error
	for attempt := 0; attempt <= maxTranscribeRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := fn()
		if err == nil {
			return nil
		}
		last = err
		if !retryableCode(err) || attempt == maxTranscribeRetries {
			return err
		}
		g.log.Warn("media.retry", "op", opName, "attempt", attempt+1, "error", err.Error())
		g.sleep(delay)
		delay *= 2
		if delay > retryMaxDelay {
			delay = retryMaxDelay
		}
	}
	return last
}

func retryableCode(err error) bool {
	switch status.Code(err) {
	case codes.Unavailable, codes.ResourceExhausted, codes.DeadlineExceeded:
		return true
	}
	return false
}

func flattenSpeechResults(resp *speechpb.LongRunningRecognizeResponse) string {
	if resp == nil {
		return ""
	}
	var b strings.Builder
	for _, r := range resp.Results {
		if r == nil || len(r.Alternatives) == 0 || r.Alternatives[0] == nil {
			continue
		}
		t := strings.TrimSpace(r.Alternatives[0].Transcript)
		if t == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString(" ")
		}
		b.WriteString(t)
	}
	return strings.TrimSpace(b.String())
}

func flattenVideoResults(resp *videointelligencepb.AnnotateVideoResponse) string {
	if resp == nil {
		return ""
	}
	var b strings.Builder
	for _, ar := range resp.AnnotationResults {
		if ar == nil {
			continue
		}
		for _, st := range ar.SpeechTranscriptions {
			if st == nil || len(st.Alternatives) == 0 || st.Alternatives[0] == nil {
				continue
			}
			t := strings.TrimSpace(st.Alternatives[0].Transcript)
			if t == "" {
				continue
			}
			if b.Len() > 0 {
				b.WriteString(" ")
			}
			b.WriteString(t)
		}
	}
	return strings.TrimSpace(b.String())
}

func inferAudioEncoding(mimeType string) speechpb.RecognitionConfig_AudioEncoding {
	m := normalizeMime(mimeType)
	switch {
	case strings.Contains(m, "wav"):
		return speechpb.RecognitionConfig_LINEAR16
	case strings.Contains(m, "flac"):
		return speechpb.RecognitionConfig_FLAC
	case strings.Contains(m, "mp3") || strings.Contains(m, "mpeg"):
		return speechpb.RecognitionConfig_MP3
	case strings.Contains(m, "ogg") || strings.Contains(m, "opus"):
		return speechpb.RecognitionConfig_OGG_OPUS
	default:
		return speechpb.RecognitionConfig_ENCODING_UNSPECIFIED
	}
}

// clientOptionsFromEnv picks up explicit credentials when the ambient
// application-default chain is not set up.
func clientOptionsFromEnv() []option.ClientOption {
	creds := strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS_JSON"))
	if creds == "" {
		creds = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	var opts []option.ClientOption
	if creds == "" {
		return opts
	}
	if strings.HasPrefix(creds, "{") {
		opts = append(opts, option.WithCredentialsJSON([]byte(creds)))
	} else {
		opts = append(opts, option.WithCredentialsFile(creds))
	}
	return opts
}

var _ Transcriber = (*GCP)(nil)
