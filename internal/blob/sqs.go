package blob

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"questrail.io/questrail/internal/cache"
	"questrail.io/questrail/pkg/errors"
	"questrail.io/questrail/pkg/log"
)

type QueueMessageHandler func(*types.Message) (deleteMsg bool, err error)

func (s *Clients) NewSQSWorker(ctx context.Context, queueURL string, handler QueueMessageHandler) {
	go s.blockingConsumeSQSMessages(ctx, queueURL, handler)
}

func (s *Clients) blockingConsumeSQSMessages(ctx context.Context, queueURL string, handler QueueMessageHandler) {
	idx := strings.LastIndex(queueURL, "/")
	queueName := queueURL[idx+1:]
	log.Infof("Blocking consume messages from queue %v...", queueName)
	defer log.Infof("Stopped to consume messages from queue %v...", queueName)
	for {
		msg, err := s.GetSingleMessageFromSQS(ctx, queueURL)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return
			}
			log.Error(err)
			continue
		}
		if msg == nil {
			continue
		}
		// Deduplicate across worker restarts: first delivery wins, a
		// replayed message is dropped from the queue untouched.
		cacheKey := fmt.Sprintf("%v_deduplication:%v", queueName, *msg.MessageId)
		set, err := cache.Redis.SetNX(ctx, cacheKey, 1, time.Hour*24*3).Result()
		if err != nil {
			log.Error(errors.WrapAndReport(err, "deduplicate queue message"))
			continue
		}
		if !set {
			if err := s.DeleteSingleMessageFromSQS(ctx, queueURL, *msg.ReceiptHandle); err != nil {
				log.Error(err)
			}
			continue
		}

		deleteMsg, err := handler(msg)
		if err != nil {
			log.Error(err)
			if err := cache.Redis.Del(ctx, cacheKey).Err(); err != nil {
				log.Error(errors.WrapfAndReport(err, "delete queue %v message %v deduplication", queueName, *msg.MessageId))
			}
			continue
		}
		if deleteMsg {
			if err := s.DeleteSingleMessageFromSQS(ctx, queueURL, *msg.ReceiptHandle); err != nil {
				log.Error(err)
			}
		} else {
			if err := cache.Redis.Del(ctx, cacheKey).Err(); err != nil {
				log.Error(errors.WrapfAndReport(err, "delete queue %v message %v deduplication", queueName, *msg.MessageId))
			}
		}
	}
}

func (s *Clients) GetSingleMessageFromSQS(ctx context.Context, queueUrl string) (*types.Message, error) {
	output, err := s.sqsClient.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(queueUrl),
		MaxNumberOfMessages: 1,
	})
	if err != nil {
		return nil, errors.WrapfAndReport(err, "query sqs message from %s", queueUrl)
	}
	if len(output.Messages) == 0 {
		return nil, nil
	}
	return &output.Messages[0], nil
}

func (s *Clients) DeleteSingleMessageFromSQS(ctx context.Context, queueUrl, receiptHandle string) error {
	_, err := s.sqsClient.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(queueUrl),
		ReceiptHandle: aws.String(receiptHandle),
	})
	return errors.WrapfAndReport(err, "delete sqs message from %s", queueUrl)
}

func (s *Clients) SendMessageToSQS(ctx context.Context, queueUrl, message string) error {
	_, err := s.sqsClient.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(queueUrl),
		MessageBody: aws.String(message),
	})
	return errors.WrapfAndReport(err, "send sqs message to %s", queueUrl)
}
