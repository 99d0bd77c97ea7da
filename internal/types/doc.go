/*
Package types defines the data structures shared by the seeder, the
workload generator, the load engine and the reference server.

# Todo Types

TodoRecord is what the seeder posts. Todo is what the server stores and
returns, with a server-assigned integer ID. TodoUpdate is a partial update;
the workload only ever sets Completed.

# Request Types

Request and Result describe one HTTP call. Step names the position of the
call in the scenario ("setup", "query_all_todos", "query_todo",
"update_todo") and is carried through to metrics and persisted rows.

A Result with Status 0 means the request never received a response; the
reason is in Error.
*/
package types
