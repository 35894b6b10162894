/*
Package ddns keeps Cloudflare DNS records in sync with the public IP
addresses of the host it runs on.

Usage starts with [LoadConfig] and [New],
which returns a *Client.
[Client.Run] performs one reconciliation pass:
it discovers the current public IPv4 and IPv6 addresses,
then patches the A and AAAA records of each configured domain whose
content no longer matches.
Scheduling repeated runs is left to cron or a systemd timer.
*/
package ddns
