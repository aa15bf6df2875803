// Command tools dumps the transfer archive of a courier Badger database
// as a table, newest first. Meant for operators poking at a stopped or
// live instance (the lock guard is bypassed for the latter).
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/dustin/go-humanize"
	"github.com/gookit/color"
	"github.com/mama165/sdk-go/database"
	"github.com/olekukonko/tablewriter"

	"courier-lab/infrastructure/storage"
)

func main() {
	dbPath := flag.String("db", database.DefaultPath, "Path to badger DB")
	prefix := flag.String("prefix", "transfer:", "Prefix to scan")
	colours := flag.Bool("colours", true, "Colorize the status column")
	flag.Parse()

	db, err := openDB(*dbPath)
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer db.Close()

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Finished", "Status", "Name", "Size", "Requester", "Destination", "Reason"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	err = db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		prefixBytes := []byte(*prefix)
		// Reverse iteration needs a seek past the last possible key.
		seekKey := append([]byte{}, prefixBytes...)
		seekKey = append(seekKey, 0xFF)

		for it.Seek(seekKey); it.ValidForPrefix(prefixBytes); it.Next() {
			item := it.Item()

			err := item.Value(func(v []byte) error {
				var record storage.TransferRecord
				if err := json.Unmarshal(v, &record); err != nil {
					fmt.Printf("Error unmarshaling key %s: %v\n", string(item.Key()), err)
					return nil
				}

				table.Append([]string{
					record.FinishedAt.Format("2006-01-02 15:04:05"),
					renderStatus(record.Status, *colours),
					record.Name,
					humanize.Bytes(uint64(record.Size)),
					record.Requester,
					record.Destination,
					record.Reason,
				})
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})

	if err != nil {
		log.Fatal(err)
	}

	table.Render()
}

func renderStatus(status string, colours bool) string {
	if !colours {
		return status
	}
	switch status {
	case "COMPLETED":
		return color.New(color.FgGreen).Render(status)
	case "FAILED":
		return color.New(color.FgRed).Render(status)
	case "CANCELLED":
		return color.New(color.FgYellow).Render(status)
	default:
		return status
	}
}

func openDB(path string) (*badger.DB, error) {
	opts := badger.DefaultOptions(path).
		WithReadOnly(true).
		WithLogger(nil).
		WithBypassLockGuard(true).
		WithValueLogFileSize(10 * 1024 * 1024)

	db, err := badger.Open(opts)
	if err != nil {
		if strings.Contains(err.Error(), "Log truncate required") {
			repairOpts := badger.DefaultOptions(path).
				WithLogger(nil).WithBypassLockGuard(true)

			db, err = badger.Open(repairOpts)
			if err != nil {
				return nil, fmt.Errorf("repair failed: %w", err)
			}

			db.Close()
			return badger.Open(opts)
		}
		return nil, err
	}
	return db, nil
}
