// Package sqlinline holds the inline SQL statements executed through
// infra.SQLRunner. Every statement starts with a `--sql <uuid>` marker line
// used for log correlation.
package sqlinline

const QInsertJob = `--sql 7c1f2a90-3b64-4f0e-9d21-8a4c5e6f7b01
insert into jobs (id, owner_id, vendor, external_id, status, input, result_url, error_detail, attempt, created_at)
values ($1, $2, $3, '', $4, $5, '', '', 0, $6);
`

const QAttachExternalID = `--sql 4e8a9b12-6c3d-4f5e-8a7b-9c0d1e2f3a02
update jobs
set external_id = $2
where id = $1 and external_id = '';
`

const QGetJob = `--sql 9d2c4b6e-1f3a-4c5d-b7e8-0a1b2c3d4e03
select id, owner_id, vendor, external_id, status, input, result_url, error_detail, attempt, created_at, last_polled_at, terminal_at
from jobs
where id = $1;
`

const QGetJobByExternalID = `--sql 5a6b7c8d-9e0f-4a1b-8c2d-3e4f5a6b7c04
select id, owner_id, vendor, external_id, status, input, result_url, error_detail, attempt, created_at, last_polled_at, terminal_at
from jobs
where vendor = $1 and external_id = $2;
`

const QListPollable = `--sql 2b3c4d5e-6f7a-4b8c-9d0e-1f2a3b4c5d05
select id, owner_id, vendor, external_id, status, input, result_url, error_detail, attempt, created_at, last_polled_at, terminal_at
from jobs
where status in ('submitted', 'processing')
order by created_at asc
limit $1;
`

const QMarkProcessing = `--sql 8e9f0a1b-2c3d-4e5f-a6b7-c8d9e0f1a206
update jobs
set status = 'processing'
where id = $1 and status = 'submitted';
`

const QRecordPoll = `--sql 3f4a5b6c-7d8e-4f9a-b0c1-d2e3f4a5b607
update jobs
set last_polled_at = $2, attempt = attempt + 1
where id = $1;
`

const QCommitTerminal = `--sql 6c7d8e9f-0a1b-4c2d-8e3f-a4b5c6d7e808
update jobs
set status = $2, result_url = $3, error_detail = $4, terminal_at = now()
where id = $1 and status = any($5);
`
