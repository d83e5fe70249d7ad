package notify

var MergeUpdates = mergeUpdates
