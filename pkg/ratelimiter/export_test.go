package ratelimiter

var WithMiddlewareClock = withMiddlewareClock
