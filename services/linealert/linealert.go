package linealert

import (
	"fmt"
	"log"
	"os"

	"geoattend_go/models"

	"github.com/line/line-bot-sdk-go/linebot"
)

// Service pushes session lifecycle alerts to a professor's LINE group, when
// one is configured on their account. Entirely best-effort.
type Service struct {
	Bot *linebot.Client
}

func NewService() *Service {
	channelSecret := os.Getenv("LINE_CHANNEL_SECRET")
	channelToken := os.Getenv("LINE_CHANNEL_ACCESS_TOKEN")

	if channelSecret == "" || channelToken == "" {
		log.Println("LINE alerts disabled: missing LINE_CHANNEL_SECRET or LINE_CHANNEL_ACCESS_TOKEN")
		return &Service{Bot: nil}
	}

	bot, err := linebot.New(channelSecret, channelToken)
	if err != nil {
		log.Printf("Cannot create LINE bot client, alerts disabled: %v", err)
		return &Service{Bot: nil}
	}

	return &Service{Bot: bot}
}

func (s *Service) push(groupID, message string) {
	if s.Bot == nil || groupID == "" {
		return
	}
	if _, err := s.Bot.PushMessage(groupID, linebot.NewTextMessage(message)).Do(); err != nil {
		log.Printf("LINE push failed for group %s: %v", groupID, err)
	}
}

// SessionStarted announces a freshly opened live session.
func (s *Service) SessionStarted(professor *models.User, session *models.ActiveClassSession) {
	s.push(professor.LineGroupID, fmt.Sprintf(
		"Class session opened: %s %s (radius %.0fm). Students can check in now.",
		session.ClassDate.Format("2006-01-02"), session.StartTime, session.RadiusMeters))
}

// SessionExpired announces a session force-closed by the reaper.
func (s *Service) SessionExpired(professor *models.User, session *models.ActiveClassSession) {
	s.push(professor.LineGroupID, fmt.Sprintf(
		"Class session for %s %s was auto-closed after its scheduled end.",
		session.ClassDate.Format("2006-01-02"), session.StartTime))
}
