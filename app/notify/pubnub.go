package notify

import (
	"context"

	pubnub "github.com/pubnub/go/v7"
)

type PubNubConfig struct {
	PublishKey   string
	SubscribeKey string
	UserID       string
}

type PubNubPublisher struct {
	pn *pubnub.PubNub
}

func NewPubNubPublisher(cfg PubNubConfig) *PubNubPublisher {
	pnCfg := pubnub.NewConfigWithUserId(pubnub.UserId(cfg.UserID))
	pnCfg.PublishKey = cfg.PublishKey
	pnCfg.SubscribeKey = cfg.SubscribeKey

	return &PubNubPublisher{pn: pubnub.NewPubNub(pnCfg)}
}

func (p *PubNubPublisher) Publish(_ context.Context, channel string, message map[string]interface{}) error {
	_, _, err := p.pn.Publish().
		Channel(channel).
		Message(message).
		Execute()
	return err
}
