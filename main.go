package main

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"git.0xdad.com/tblyler/dosetrack/config"
	"git.0xdad.com/tblyler/dosetrack/db"
	"git.0xdad.com/tblyler/dosetrack/notify"
	"git.0xdad.com/tblyler/dosetrack/session"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ConfigFileEnv points at an optional config file used instead of env vars
const ConfigFileEnv = "DOSETRACK_CONFIG"

func errLog(messages ...interface{}) {
	fmt.Fprintln(os.Stderr, messages...)
}

func log(messages ...interface{}) {
	fmt.Println(messages...)
}

func help() {
	errLog("usage: dosetrack <command>")
	errLog("  user add|get|list")
	errLog("  medication add|list|edit|deactivate")
	errLog("  today        show today's classified dose schedule")
	errLog("  take         mark a pending dose log taken")
	errLog("  skip         mark a pending dose log skipped")
	errLog("  run          daemon: midnight rollover and reminder dispatch")
}

func prompt(inputScanner *bufio.Scanner, label string) (string, error) {
	fmt.Printf("%s: ", label)
	inputScanner.Scan()

	value := string(bytes.TrimSpace(inputScanner.Bytes()))
	if value == "" {
		return "", fmt.Errorf("failed to get %s from STDIN prompt: %w", label, inputScanner.Err())
	}

	return value, nil
}

func promptOptional(inputScanner *bufio.Scanner, label string) string {
	fmt.Printf("%s (optional): ", label)
	inputScanner.Scan()

	return string(bytes.TrimSpace(inputScanner.Bytes()))
}

func promptUser(inputScanner *bufio.Scanner, b *db.Badger) (*db.User, error) {
	username, err := prompt(inputScanner, "username")
	if err != nil {
		return nil, err
	}

	user, err := b.GetUser(username)
	if err != nil {
		return nil, fmt.Errorf("failed to lookup username %s: %w", username, err)
	}

	if user == nil {
		return nil, fmt.Errorf("username %s doesn't exist", username)
	}

	return user, nil
}

func promptMedication(inputScanner *bufio.Scanner, b *db.Badger, user *db.User) (*db.Medication, error) {
	idValue, err := prompt(inputScanner, "medication id")
	if err != nil {
		return nil, err
	}

	id, err := uuid.Parse(idValue)
	if err != nil {
		return nil, fmt.Errorf("invalid medication id %s: %w", idValue, err)
	}

	medication, err := b.GetMedication(user.ID, id)
	if err != nil {
		return nil, err
	}

	if medication == nil {
		return nil, fmt.Errorf("medication %s doesn't exist for user %s", id, user.Name)
	}

	return medication, nil
}

// promptDosingRule fills the schedule fields of a medication from STDIN
func promptDosingRule(inputScanner *bufio.Scanner, medication *db.Medication) error {
	frequencyValue, err := prompt(inputScanner, "doses per day (1-10)")
	if err != nil {
		return err
	}

	frequency, err := strconv.Atoi(frequencyValue)
	if err != nil {
		return fmt.Errorf("invalid frequency %s: %w", frequencyValue, err)
	}

	timing, err := prompt(inputScanner, "timing (before_meal/after_meal/anytime)")
	if err != nil {
		return err
	}

	startValue := promptOptional(inputScanner, "start date YYYY-MM-DD, empty for today")
	startDate := db.DateOf(time.Now())

	if startValue != "" {
		startDate, err = db.ParseDate(startValue)
		if err != nil {
			return err
		}
	}

	durationValue, err := prompt(inputScanner, "duration in days")
	if err != nil {
		return err
	}

	durationDays, err := strconv.Atoi(durationValue)
	if err != nil {
		return fmt.Errorf("invalid duration %s: %w", durationValue, err)
	}

	var doseTimes []db.TimeOfDay

	timesValue := promptOptional(inputScanner, "custom dose times HH:MM:SS, comma separated")
	if timesValue != "" {
		for _, timeValue := range strings.Split(timesValue, ",") {
			doseTime, err := db.ParseTimeOfDay(strings.TrimSpace(timeValue))
			if err != nil {
				return err
			}

			doseTimes = append(doseTimes, doseTime)
		}
	}

	intervalHours := float64(0)

	intervalValue := promptOptional(inputScanner, "hours between doses")
	if intervalValue != "" {
		intervalHours, err = strconv.ParseFloat(intervalValue, 64)
		if err != nil {
			return fmt.Errorf("invalid dose interval %s: %w", intervalValue, err)
		}
	}

	medication.Frequency = frequency
	medication.Timing = db.Timing(timing)
	medication.StartDate = startDate
	medication.DurationDays = durationDays
	medication.DoseTimes = doseTimes
	medication.IntervalHours = intervalHours

	return medication.Validate()
}

func printTodayView(view *session.TodayView) {
	log(view.Date)

	for _, day := range view.Medications {
		log(fmt.Sprintf("%s (%d/%d taken)", day.Medication.Name, day.Taken, len(day.Entries)))

		for _, entry := range day.Entries {
			log(fmt.Sprintf(
				"  %s  [%s] %s  (id %s)",
				entry.Log.ScheduledTime,
				entry.State,
				entry.Detail,
				entry.Log.ID,
			))
		}
	}
}

func run(cfg config.Config, b *db.Badger, loc *time.Location) error {
	pushoverAPIToken, err := cfg.PushoverAPIToken()
	if err != nil {
		return err
	}

	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}

	defer logger.Sync()

	daemon := session.NewDaemon(
		session.New(b, logger, loc),
		b,
		notify.NewPushover(pushoverAPIToken, logger),
		logger,
	)

	err = daemon.Start()
	if err != nil {
		return err
	}

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	<-signals

	daemon.Stop()

	return nil
}

func main() {
	lenArgs := len(os.Args)
	if lenArgs <= 1 {
		help()
		errLog("must supply at least one argument")
		os.Exit(1)
	}

	err := func() error {
		inputScanner := bufio.NewScanner(os.Stdin)

		var cfg config.Config = &config.Env{}
		if path, ok := os.LookupEnv(ConfigFileEnv); ok {
			fileConfig, err := config.NewFile(path)
			if err != nil {
				return err
			}

			cfg = fileConfig
		}

		badgerPath, err := cfg.BadgerPath()
		if err != nil {
			return err
		}

		timezone, err := cfg.Timezone()
		if err != nil {
			return err
		}

		loc := time.Local
		if timezone != "Local" {
			loc, err = time.LoadLocation(timezone)
			if err != nil {
				return fmt.Errorf("failed to load timezone %s: %w", timezone, err)
			}
		}

		b, err := db.NewBadger(badgerPath)
		if err != nil {
			return err
		}

		defer b.Close()

		sess := session.New(b, zap.NewNop(), loc)

		switch os.Args[1] {
		case "run":
			return run(cfg, b, loc)

		case "today":
			user, err := promptUser(inputScanner, b)
			if err != nil {
				return err
			}

			view, err := sess.Refresh(user)
			if err != nil {
				return err
			}

			printTodayView(view)

		case "take", "skip":
			idValue, err := prompt(inputScanner, "dose log id")
			if err != nil {
				return err
			}

			id, err := uuid.Parse(idValue)
			if err != nil {
				return fmt.Errorf("invalid dose log id %s: %w", idValue, err)
			}

			var doseLog *db.DoseLog
			if os.Args[1] == "take" {
				doseLog, err = sess.MarkTaken(id, nil)
			} else {
				doseLog, err = sess.MarkSkipped(id)
			}

			if err != nil {
				return err
			}

			log(fmt.Sprintf(
				"%s dose at %s %s",
				doseLog.Status,
				doseLog.ScheduledDate,
				doseLog.ScheduledTime,
			))

		case "user":
			if lenArgs < 3 {
				return errors.New("must supply an argument to the user command")
			}

			switch os.Args[2] {
			case "add":
				username, err := prompt(inputScanner, "username")
				if err != nil {
					return err
				}

				deviceToken, err := prompt(inputScanner, "pushover device token")
				if err != nil {
					return err
				}

				id := uuid.New()

				err = b.AddUser(&db.User{
					ID:   id,
					Name: username,
					PushoverDeviceTokens: map[string]string{
						"default": deviceToken,
					},
					CreatedAt: time.Now(),
				})
				if err != nil {
					return fmt.Errorf("failed to insert username %s: %w", username, err)
				}

				log("created user id", id)

			case "get":
				user, err := promptUser(inputScanner, b)
				if err != nil {
					return err
				}

				log(user)

			case "list":
				users, err := b.ListUsers()
				if err != nil {
					return err
				}

				for _, user := range users {
					log(user)
				}
			}

		case "medication":
			if lenArgs < 3 {
				return errors.New("must supply an argument to the medication command")
			}

			switch os.Args[2] {
			case "add":
				user, err := promptUser(inputScanner, b)
				if err != nil {
					return err
				}

				name, err := prompt(inputScanner, "name")
				if err != nil {
					return err
				}

				device, err := prompt(inputScanner, "pushover device token id")
				if err != nil {
					return err
				}

				if _, ok := user.PushoverDeviceTokens[device]; !ok {
					return fmt.Errorf("the '%s' pushover device token doesn't exist for user %s", device, user.Name)
				}

				medication := &db.Medication{
					IDUser:          user.ID,
					ID:              uuid.New(),
					Name:            name,
					Active:          true,
					PushoverDevices: []string{device},
					CreatedAt:       time.Now(),
					UpdatedAt:       time.Now(),
				}

				err = promptDosingRule(inputScanner, medication)
				if err != nil {
					return err
				}

				err = b.AddMedication(medication)
				if err != nil {
					return err
				}

				// materialize today's logs right away
				_, err = sess.Refresh(user)
				if err != nil {
					return err
				}

				log(medication)

			case "list":
				user, err := promptUser(inputScanner, b)
				if err != nil {
					return err
				}

				medications, err := b.ListMedicationsForUser(user)
				if err != nil {
					return err
				}

				for _, medication := range medications {
					log(medication)
				}

			case "edit":
				user, err := promptUser(inputScanner, b)
				if err != nil {
					return err
				}

				medication, err := promptMedication(inputScanner, b, user)
				if err != nil {
					return err
				}

				err = promptDosingRule(inputScanner, medication)
				if err != nil {
					return err
				}

				err = sess.UpdateMedication(medication)
				if err != nil {
					return err
				}

				log(medication)

			case "deactivate":
				user, err := promptUser(inputScanner, b)
				if err != nil {
					return err
				}

				medication, err := promptMedication(inputScanner, b, user)
				if err != nil {
					return err
				}

				medication.Active = false

				err = sess.UpdateMedication(medication)
				if err != nil {
					return err
				}

				log("deactivated", medication.Name)
			}

		default:
			help()

			return fmt.Errorf("unknown command %s", os.Args[1])
		}

		return nil
	}()

	if err != nil {
		errLog(err.Error())
		os.Exit(1)
	}
}
