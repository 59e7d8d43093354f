package model

// Package model defines domain data structures used across the bot: catalog
// search results, audio formats, download requests and jobs, harvested files
// and job outcomes. Values are plain data; behavior lives in the services.
