package config

import (
	"flag"
	"fmt"
	"io/ioutil"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"
)

// DBCredential struct
type DBCredential struct {
	Address  string `yaml:"address"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Port     string `yaml:"port"`
	Database string `yaml:"database"`
}

func (c *DBCredential) Dsn() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s",
		c.Address, c.Port, c.User, c.Password, c.Database)
}

// GetRedisAddress prints redis credential info.
func (c *DBCredential) GetRedisAddress() string {
	return fmt.Sprintf("%v:%v", c.Address, c.Port)
}

// Configuration struct
type Configuration struct {
	RedisCredential DBCredential `yaml:"redis"`
	Postgres        DBCredential `yaml:"postgres"`
	AwsS3           aws          `yaml:"aws"`
	TelegramBot     TelegramBot  `yaml:"telegram_bot"`
	KafkaServer     string       `yaml:"kafka-server"`
	SentryDSN       string       `yaml:"sentry_dsn"`
	API             API          `yaml:"api"`
	Walk            Walk         `yaml:"walk"`
}

type TelegramBot struct {
	AuthToken string `yaml:"auth_token"`
	// AdminGroupID is the chat where /approve and /reject are accepted
	// and where new submissions are announced.
	AdminGroupID int64 `yaml:"admin_group_id"`
	// UpdateTimeoutSec is the long poll timeout.
	UpdateTimeoutSec int `yaml:"update_timeout_sec"`
}

type API struct {
	ListenAddr string `yaml:"listen_addr"`
	// WriteToken guards mutating endpoints; reads are open.
	WriteToken string `yaml:"write_token"`
}

type Walk struct {
	FeedbackDelayMins int `yaml:"feedback_delay_mins"`
}

func (w Walk) FeedbackDelay() time.Duration {
	if w.FeedbackDelayMins <= 0 {
		return 30 * time.Minute
	}
	return time.Duration(w.FeedbackDelayMins) * time.Minute
}

// aws conf
type aws struct {
	Bucket awsBucket `yaml:"bucket"`
	Queues Queues    `yaml:"queues"`
}

type awsBucket struct {
	Name   string `yaml:"name"`
	Region string `yaml:"region"`
}

type Queues struct {
	NotificationQueueURL string `yaml:"notification_queue_url"`
}

func readConfig(path string) (Configuration, error) {
	logrus.Info("Starting to load configuration file ...")
	dat, err := ioutil.ReadFile(path)
	if err != nil {
		logrus.Fatal(err)
	}
	t := Configuration{}
	err = yaml.Unmarshal(dat, &t)

	if err != nil {
		if os.IsNotExist(err) {
			logrus.Fatalf("file %s does not exist", path)
		} else {
			logrus.Fatalf("fail to decode config error: %v", err)
		}
	}
	return t, nil
}

var Global *Configuration

// Read reads configuration information from yml.
func Read() {
	configFilePath := flag.String("config-path", "internal/config/config.yml", "The path to the configuration file")
	flag.Parse()
	logrus.Infof("Loading configuration file from %s", *configFilePath)
	globalConfig, err := readConfig(*configFilePath)
	if err != nil {
		logrus.Fatal(err)
	}
	Global = &globalConfig
}
