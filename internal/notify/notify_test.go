package notify

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"questrail.io/questrail/internal/chat"
)

type stubChannel struct {
	texts  []string
	photos []string
}

func (s *stubChannel) SendText(_ context.Context, _ int64, text string) error {
	s.texts = append(s.texts, text)
	return nil
}

func (s *stubChannel) SendPhotoData(_ context.Context, _ int64, _ []byte, caption string) error {
	s.photos = append(s.photos, caption)
	return nil
}

func (s *stubChannel) SendTextWithKeyboard(context.Context, int64, string, chat.Keyboard) error {
	return nil
}
func (s *stubChannel) SendMenu(context.Context, int64, string, [][]string) error    { return nil }
func (s *stubChannel) SendContactRequest(context.Context, int64, string) error      { return nil }
func (s *stubChannel) SendLocation(context.Context, int64, float64, float64) error  { return nil }
func (s *stubChannel) SendPhoto(context.Context, int64, string, string) error       { return nil }
func (s *stubChannel) SendAudio(context.Context, int64, string, string) error       { return nil }
func (s *stubChannel) SendVideo(context.Context, int64, string, string) error       { return nil }
func (s *stubChannel) SendMediaGroup(context.Context, int64, []chat.Media) error    { return nil }
func (s *stubChannel) StoreInboundMedia(context.Context, string, string) (string, error) {
	return "", nil
}

func TestDeliverApprovalSendsCodeAndQR(t *testing.T) {
	channel := &stubChannel{}
	err := deliver(context.Background(), channel, Notice{
		Kind:       NoticeQuestApproved,
		TelegramID: 42,
		QuestName:  "Find the mural",
		PromoCode:  "SPRING-10",
		Comment:    "great shot",
	})
	require.NoError(t, err)
	require.Len(t, channel.texts, 1)
	require.Contains(t, channel.texts[0], "SPRING-10")
	require.Contains(t, channel.texts[0], "Find the mural")
	require.Contains(t, channel.texts[0], "great shot")
	require.Equal(t, []string{"SPRING-10"}, channel.photos)
}

func TestDeliverRejection(t *testing.T) {
	channel := &stubChannel{}
	err := deliver(context.Background(), channel, Notice{
		Kind:       NoticeQuestRejected,
		TelegramID: 42,
		QuestName:  "Find the mural",
		Comment:    "photo is blurry",
	})
	require.NoError(t, err)
	require.Len(t, channel.texts, 1)
	require.Contains(t, channel.texts[0], "rejected")
	require.Contains(t, channel.texts[0], "photo is blurry")
	require.Empty(t, channel.photos)
}

func TestDeliverUnknownKindDropped(t *testing.T) {
	channel := &stubChannel{}
	require.NoError(t, deliver(context.Background(), channel, Notice{Kind: "mystery"}))
	require.Empty(t, channel.texts)
}
