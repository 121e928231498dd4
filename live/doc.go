// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package live streams analysis progress to websocket clients.
//
// Each connection is told its session id on connect. Events carrying that
// session id, or the poll id the connection subscribed to, are delivered
// to it; everything else is skipped unless BroadcastAll is set.
//
// Generation runs before a poll id exists, so its events carry PollID 0
// and reach clients by session id only. Poll subscriptions serve events
// about an existing poll.
package live
