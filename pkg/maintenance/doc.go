// Package maintenance runs the gateway's housekeeping jobs on cron
// schedules: deleting expired daily log files and pruning the usage
// ledger past its retention.
package maintenance
